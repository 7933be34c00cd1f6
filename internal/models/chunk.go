// ABOUTME: Chunk represents a bounded slice of a comment sent as one request
// ABOUTME: ChunkResult carries the parsed label and failure kind for one chunk
package models

// ChunkType records the finest boundary the chunker had to cut at
type ChunkType string

const (
	ChunkTypeWhole     ChunkType = "WHOLE"
	ChunkTypeParagraph ChunkType = "PARAGRAPH"
	ChunkTypeSentence  ChunkType = "SENTENCE"
	ChunkTypeWord      ChunkType = "WORD"
	ChunkTypeRune      ChunkType = "RUNE"
)

// IsValid reports whether t is a known boundary level
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeWhole, ChunkTypeParagraph, ChunkTypeSentence, ChunkTypeWord, ChunkTypeRune:
		return true
	}
	return false
}

// Chunk is an ordered piece of a comment; Index follows document order
type Chunk struct {
	CommentID     string    `json:"comment_id"`
	Index         int       `json:"index"`
	ChunkType     ChunkType `json:"chunk_type"`
	Text          string    `json:"text"`
	TokenEstimate int       `json:"token_estimate"`
}

// FailureKind says why a chunk ended up unparseable
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTransient
	FailureMalformed
	FailurePermanent
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTransient:
		return "transient"
	case FailureMalformed:
		return "malformed"
	case FailurePermanent:
		return "permanent"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ChunkResult is the outcome of classifying one chunk
type ChunkResult struct {
	Chunk     Chunk       `json:"chunk"`
	Label     Category    `json:"label"`
	RawOutput string      `json:"raw_output"`
	Attempts  int         `json:"attempts"`
	Failure   FailureKind `json:"failure"`
	Err       error       `json:"-"`
}

// Succeeded reports whether the chunk produced a permitted label
func (r ChunkResult) Succeeded() bool {
	return r.Failure == FailureNone && r.Label != Unparseable && r.Label != ""
}
