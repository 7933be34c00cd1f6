// ABOUTME: Category is the closed label enumeration a task classifies into
// ABOUTME: CategorySet.Parse is the only path from raw model text to a Category
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Category is a permitted classification label (e.g. "for", "against")
type Category string

// Unparseable marks output that could not be mapped to a permitted category
const Unparseable Category = "unparseable"

// String returns the label text
func (c Category) String() string {
	return string(c)
}

// CategorySet is the ordered, closed set of labels for one task
type CategorySet []Category

// NewCategorySet normalizes labels and rejects empty, duplicate or reserved ones
func NewCategorySet(labels ...string) (CategorySet, error) {
	if len(labels) < 2 {
		return nil, fmt.Errorf("a category set needs at least 2 labels, got %d", len(labels))
	}

	set := make(CategorySet, 0, len(labels))
	seen := make(map[Category]bool, len(labels))
	for _, label := range labels {
		c := Category(normalizeLabel(label))
		if c == "" {
			return nil, fmt.Errorf("empty category label")
		}
		if c == Unparseable {
			return nil, fmt.Errorf("%q is reserved", Unparseable)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = true
		set = append(set, c)
	}
	return set, nil
}

// Contains reports whether c is a permitted label
func (s CategorySet) Contains(c Category) bool {
	for _, x := range s {
		if x == c {
			return true
		}
	}
	return false
}

// Index returns the position of c in the set, or -1
func (s CategorySet) Index(c Category) int {
	for i, x := range s {
		if x == c {
			return i
		}
	}
	return -1
}

// Strings returns the labels as plain strings (for schemas and prompts)
func (s CategorySet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

var (
	fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}_-]+`)
)

// Parse maps raw model output onto the set. It accepts a bare label, a JSON
// object with a "label" field, quoted or fenced output, and free text that
// mentions exactly one permitted label. Anything else is Unparseable.
func (s CategorySet) Parse(raw string) (Category, bool) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	if strings.HasPrefix(text, "{") {
		var obj struct {
			Label string `json:"label"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			text = obj.Label
		}
	}

	if c := Category(normalizeLabel(text)); s.Contains(c) {
		return c, true
	}

	// Free text: accept only when a single permitted label appears as a word
	// and no negation comes right before it
	var found Category
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	for i, w := range words {
		c := Category(w)
		if !s.Contains(c) {
			continue
		}
		if negated(words, i) {
			return Unparseable, false
		}
		if found != "" && found != c {
			return Unparseable, false
		}
		found = c
	}
	if found != "" {
		return found, true
	}
	return Unparseable, false
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true,
	"nor": true, "without": true, "cannot": true,
}

// negated reports whether one of the two words before words[i] negates it.
// Contractions split into "isn" "t", so a lone "t" after a word ending in n counts.
func negated(words []string, i int) bool {
	for j := max(0, i-2); j < i; j++ {
		if negations[words[j]] {
			return true
		}
		if words[j] == "t" && j > 0 && strings.HasSuffix(words[j-1], "n") {
			return true
		}
	}
	return false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`*.!,;: \t\r\n")
	return s
}
