// ABOUTME: Tests for CategorySet construction and raw output parsing
// ABOUTME: Covers bare labels, JSON, fenced output, free text and ambiguity
package models

import (
	"testing"
)

func TestNewCategorySet(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		want    []string
		wantErr bool
	}{
		{"normalizes case and space", []string{" For", "AGAINST "}, []string{"for", "against"}, false},
		{"keeps order", []string{"present", "absent"}, []string{"present", "absent"}, false},
		{"single label", []string{"for"}, nil, true},
		{"duplicate", []string{"for", "FOR"}, nil, true},
		{"empty label", []string{"for", "  "}, nil, true},
		{"reserved sentinel", []string{"for", "unparseable"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewCategorySet(tt.labels...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCategorySet() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := set.Strings()
			if len(got) != len(tt.want) {
				t.Fatalf("Strings() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Strings()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCategorySet_Parse(t *testing.T) {
	set, err := NewCategorySet("for", "against")
	if err != nil {
		t.Fatalf("NewCategorySet() error = %v", err)
	}

	tests := []struct {
		name   string
		raw    string
		want   Category
		wantOK bool
	}{
		{"bare label", "for", "for", true},
		{"upper case", "AGAINST", "against", true},
		{"trailing period and space", "  Against.\n", "against", true},
		{"quoted", `"for"`, "for", true},
		{"json object", `{"label": "against"}`, "against", true},
		{"fenced json", "```json\n{\"label\": \"for\"}\n```", "for", true},
		{"free text single label", "The commenter is against the bill", "against", true},
		{"free text both labels", "Not for it, against it", Unparseable, false},
		{"unknown label", "neutral", Unparseable, false},
		{"empty", "", Unparseable, false},
		{"json with unknown label", `{"label": "maybe"}`, Unparseable, false},
		{"substring only", "afore", Unparseable, false},
		{"negated label", "The commenter is not against the bill.", Unparseable, false},
		{"negated with adverb", "Not really for it", Unparseable, false},
		{"contraction", "They aren't for this", Unparseable, false},
		{"curly contraction", "The concept isn’t against anything", Unparseable, false},
		{"never", "never for", Unparseable, false},
		{"negation far from label", "No doubt about it, they are for the bill", "for", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := set.Parse(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCategorySet_ParseNegatedMention(t *testing.T) {
	set := CategorySet{"present", "absent"}

	if got, ok := set.Parse("The concept is not present."); ok {
		t.Errorf("Parse(not present) = (%q, true), want unparseable", got)
	}
	if got, ok := set.Parse("The concept is present."); !ok || got != "present" {
		t.Errorf("Parse(present) = (%q, %v), want (present, true)", got, ok)
	}
}

func TestCategorySet_Index(t *testing.T) {
	set := CategorySet{"present", "absent"}

	if got := set.Index("absent"); got != 1 {
		t.Errorf("Index(absent) = %d, want 1", got)
	}
	if got := set.Index(Unparseable); got != -1 {
		t.Errorf("Index(unparseable) = %d, want -1", got)
	}
	if set.Contains("for") {
		t.Error("Contains(for) = true, want false")
	}
}
