// ABOUTME: Tests for Chunk model, ChunkType validation and ChunkResult status
// ABOUTME: Verifies boundary levels and success detection for chunk outcomes
package models

import (
	"errors"
	"testing"
)

func TestChunkType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		chunkType ChunkType
		want      bool
	}{
		{"WHOLE is valid", ChunkTypeWhole, true},
		{"PARAGRAPH is valid", ChunkTypeParagraph, true},
		{"SENTENCE is valid", ChunkTypeSentence, true},
		{"WORD is valid", ChunkTypeWord, true},
		{"RUNE is valid", ChunkTypeRune, true},
		{"empty string is invalid", ChunkType(""), false},
		{"arbitrary string is invalid", ChunkType("TOKEN"), false},
		{"lowercase is invalid", ChunkType("paragraph"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.chunkType.IsValid()
			if got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkResult_Succeeded(t *testing.T) {
	chunk := Chunk{CommentID: "c1", Index: 0, Text: "text", TokenEstimate: 1}

	tests := []struct {
		name   string
		result ChunkResult
		want   bool
	}{
		{"labelled", ChunkResult{Chunk: chunk, Label: "for"}, true},
		{"unparseable label", ChunkResult{Chunk: chunk, Label: Unparseable, Failure: FailureMalformed}, false},
		{"empty label", ChunkResult{Chunk: chunk}, false},
		{"transient failure", ChunkResult{Chunk: chunk, Label: Unparseable, Failure: FailureTransient, Err: errors.New("503")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want string
	}{
		{FailureNone, "none"},
		{FailureTransient, "transient"},
		{FailureMalformed, "malformed"},
		{FailurePermanent, "permanent"},
		{FailureCanceled, "canceled"},
		{FailureKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCommentState_IsTerminal(t *testing.T) {
	terminal := map[CommentState]bool{
		StatePending:     false,
		StateChunked:     false,
		StateClassifying: false,
		StateAggregated:  false,
		StateDone:        true,
		StateFailed:      true,
	}

	for state, want := range terminal {
		if got := state.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", state, got, want)
		}
	}
}
