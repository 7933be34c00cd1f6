// ABOUTME: Comment is one public-consultation submission read from the input
// ABOUTME: Immutable once loaded; only ID and Text matter to classification
package models

// Comment represents a single submission to classify
type Comment struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}
