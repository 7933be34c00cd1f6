// ABOUTME: Aggregator combines per-chunk labels into one comment-level label
// ABOUTME: Majority vote with a fixed, order-independent tie-break policy
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/harper/comment-classifier/internal/models"
)

// TieBreak selects the winner when several labels share the top vote count
type TieBreak string

const (
	// TieBreakFirstChunk prefers the tied label voted by the lowest chunk index
	TieBreakFirstChunk TieBreak = "first-chunk"
	// TieBreakCategoryOrder prefers the tied label listed first in the task
	TieBreakCategoryOrder TieBreak = "category-order"
)

// DefaultTieBreak is used when neither the task nor the flags name one
const DefaultTieBreak = TieBreakFirstChunk

// ParseTieBreak validates a tie-break name; empty selects the default
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTieBreak, nil
	case TieBreakFirstChunk:
		return TieBreakFirstChunk, nil
	case TieBreakCategoryOrder:
		return TieBreakCategoryOrder, nil
	}
	return "", models.NewConfigError("unknown tie-break %q (want %s or %s)", s, TieBreakFirstChunk, TieBreakCategoryOrder)
}

// Aggregator is a pure majority-vote reducer for one task's category set
type Aggregator struct {
	categories models.CategorySet
	tieBreak   TieBreak
}

// NewAggregator creates an Aggregator; an invalid tie-break is a configuration error
func NewAggregator(categories models.CategorySet, tieBreak TieBreak) (*Aggregator, error) {
	if len(categories) == 0 {
		return nil, models.NewConfigError("aggregator needs at least one category")
	}
	tb, err := ParseTieBreak(string(tieBreak))
	if err != nil {
		return nil, err
	}
	return &Aggregator{categories: categories, tieBreak: tb}, nil
}

// Aggregate reduces every ChunkResult of one comment to a CommentResult.
// The outcome depends only on chunk indexes and labels, never on slice order.
func (a *Aggregator) Aggregate(commentID string, results []models.ChunkResult) models.CommentResult {
	out := models.CommentResult{
		CommentID:  commentID,
		VoteCounts: make(map[models.Category]int, len(a.categories)),
		ChunkCount: len(results),
	}
	for _, c := range a.categories {
		out.VoteCounts[c] = 0
	}

	// lowest chunk index that voted for each label
	firstIndex := make(map[models.Category]int, len(a.categories))

	for _, r := range results {
		if !r.Succeeded() || !a.categories.Contains(r.Label) {
			out.UnparseableChunks++
			continue
		}
		out.VoteCounts[r.Label]++
		if idx, ok := firstIndex[r.Label]; !ok || r.Chunk.Index < idx {
			firstIndex[r.Label] = r.Chunk.Index
		}
	}

	top := 0
	for _, n := range out.VoteCounts {
		if n > top {
			top = n
		}
	}
	if top == 0 {
		out.FinalLabel = models.Unparseable
		out.State = models.StateFailed
		return out
	}

	var tied []models.Category
	for _, c := range a.categories {
		if out.VoteCounts[c] == top {
			tied = append(tied, c)
		}
	}

	out.FinalLabel = tied[0]
	if len(tied) > 1 {
		out.Tied = true
		if a.tieBreak == TieBreakFirstChunk {
			best := math.MaxInt
			for _, c := range tied {
				if firstIndex[c] < best {
					best = firstIndex[c]
					out.FinalLabel = c
				}
			}
		}
	}
	out.State = models.StateAggregated
	return out
}

// Margin formats the vote split as evidence, e.g. "for=2 against=1"
func (a *Aggregator) Margin(r models.CommentResult) string {
	parts := make([]string, 0, len(a.categories)+1)
	for _, c := range a.categories {
		parts = append(parts, fmt.Sprintf("%s=%d", c, r.VoteCounts[c]))
	}
	if r.UnparseableChunks > 0 {
		parts = append(parts, fmt.Sprintf("%s=%d", models.Unparseable, r.UnparseableChunks))
	}
	return strings.Join(parts, " ")
}
