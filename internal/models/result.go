// ABOUTME: CommentResult is the aggregated, document-level classification
// ABOUTME: CommentState tracks a comment through the pipeline state machine
package models

// CommentState is a step in the per-comment state machine
type CommentState string

const (
	StatePending     CommentState = "PENDING"
	StateChunked     CommentState = "CHUNKED"
	StateClassifying CommentState = "CLASSIFYING"
	StateAggregated  CommentState = "AGGREGATED"
	StateDone        CommentState = "DONE"
	StateFailed      CommentState = "FAILED"
)

// IsTerminal reports whether no further transition is possible
func (s CommentState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CommentResult is written once per comment to the output sink
type CommentResult struct {
	CommentID         string           `json:"comment_id"`
	FinalLabel        Category         `json:"final_label"`
	VoteCounts        map[Category]int `json:"vote_counts"`
	UnparseableChunks int              `json:"unparseable_chunks"`
	ChunkCount        int              `json:"chunk_count"`
	Tied              bool             `json:"tied"`
	State             CommentState     `json:"state"`
}

// IsUnparseable reports whether no chunk produced a usable vote
func (r *CommentResult) IsUnparseable() bool {
	return r.FinalLabel == Unparseable
}
