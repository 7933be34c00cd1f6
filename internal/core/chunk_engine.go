// ABOUTME: ChunkEngine splits comment text into token-bounded chunks
// ABOUTME: Cuts at paragraph → sentence → word → rune boundaries, losslessly
package core

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/tokenizer"
)

var (
	paragraphBoundary = regexp.MustCompile(`\n[ \t]*\r?\n\s*`)
	sentenceBoundary  = regexp.MustCompile(`[.!?…]+["'”’)\]]*\s+`)
	wordBoundary      = regexp.MustCompile(`\s+`)
)

// boundary levels from coarsest to finest; a nil pattern means single runes
var levels = []struct {
	kind    models.ChunkType
	pattern *regexp.Regexp
}{
	{models.ChunkTypeParagraph, paragraphBoundary},
	{models.ChunkTypeSentence, sentenceBoundary},
	{models.ChunkTypeWord, wordBoundary},
	{models.ChunkTypeRune, nil},
}

// ChunkEngine handles token-bounded text chunking
type ChunkEngine struct {
	estimator tokenizer.Estimator
}

// NewChunkEngine creates a ChunkEngine that measures text with est
func NewChunkEngine(est tokenizer.Estimator) *ChunkEngine {
	return &ChunkEngine{estimator: est}
}

// Estimator returns the estimator used for budgets
func (ce *ChunkEngine) Estimator() tokenizer.Estimator {
	return ce.estimator
}

type piece struct {
	text string
	kind models.ChunkType
}

// Split returns text cut into pieces of at most maxTokens estimated tokens.
// Separators stay attached to the preceding piece, so strings.Join(pieces, "")
// == text. A single rune over budget is returned as its own oversized piece.
func (ce *ChunkEngine) Split(text string, maxTokens int) ([]string, error) {
	pieces, err := ce.split(text, maxTokens)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out, nil
}

// ChunkComment splits a comment into ordered chunks with token estimates
func (ce *ChunkEngine) ChunkComment(comment models.Comment, maxTokens int) ([]models.Chunk, error) {
	pieces, err := ce.split(comment.Text, maxTokens)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = models.Chunk{
			CommentID:     comment.ID,
			Index:         i,
			ChunkType:     p.kind,
			Text:          p.text,
			TokenEstimate: ce.estimator.Estimate(p.text),
		}
	}
	return chunks, nil
}

func (ce *ChunkEngine) split(text string, maxTokens int) ([]piece, error) {
	if maxTokens <= 0 {
		return nil, models.NewConfigError("max_tokens must be positive, got %d", maxTokens)
	}
	if ce.estimator.Estimate(text) <= maxTokens {
		return []piece{{text: text, kind: models.ChunkTypeWhole}}, nil
	}
	return ce.pack(text, maxTokens, 0), nil
}

// pack greedily fills chunks with units of the given level, descending to a
// finer level for any unit that alone is over budget
func (ce *ChunkEngine) pack(text string, maxTokens, depth int) []piece {
	level := levels[depth]
	units := segment(text, level.pattern)

	var out []piece
	var buf strings.Builder
	bufTokens := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, ce.verify(buf.String(), maxTokens, depth)...)
		buf.Reset()
		bufTokens = 0
	}

	for _, unit := range units {
		n := ce.estimator.Estimate(unit)
		if n > maxTokens {
			flush()
			if depth+1 < len(levels) {
				out = append(out, ce.pack(unit, maxTokens, depth+1)...)
			} else {
				out = append(out, piece{text: unit, kind: level.kind})
			}
			continue
		}
		if bufTokens+n > maxTokens {
			flush()
		}
		buf.WriteString(unit)
		bufTokens += n
	}
	flush()

	return out
}

// verify re-measures a packed chunk; unit estimates are summed while packing
// and a tokenizer may count the joined text differently
func (ce *ChunkEngine) verify(chunk string, maxTokens, depth int) []piece {
	if ce.estimator.Estimate(chunk) <= maxTokens || depth+1 >= len(levels) {
		return []piece{{text: chunk, kind: levels[depth].kind}}
	}
	return ce.pack(chunk, maxTokens, depth+1)
}

// segment cuts text after every boundary match; nil pattern splits runes
func segment(text string, pattern *regexp.Regexp) []string {
	if pattern == nil {
		units := make([]string, 0, len(text))
		for len(text) > 0 {
			_, size := utf8.DecodeRuneInString(text)
			units = append(units, text[:size])
			text = text[size:]
		}
		return units
	}

	var units []string
	start := 0
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		if loc[1] > start {
			units = append(units, text[start:loc[1]])
			start = loc[1]
		}
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}
