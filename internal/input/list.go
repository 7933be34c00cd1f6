// ABOUTME: JSON comment lists, keyed by id or as an array of records
// ABOUTME: {"123": {"comment": "..."}} and [{"id": "123", "comment": "..."}]
package input

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/harper/comment-classifier/internal/models"
)

// LoadList parses a JSON comment list. Object keys are comment ids; array
// elements carry the id and text under opts.IDField and opts.TextField.
// A bare string value is taken as the comment text.
func LoadList(path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}

	res := &Result{}
	root := gjson.ParseBytes(data)

	switch {
	case root.IsObject():
		root.ForEach(func(key, value gjson.Result) bool {
			addRecord(res, key.String(), value, opts.TextField, path)
			return true
		})
	case root.IsArray():
		for i, value := range root.Array() {
			id := value.Get(opts.IDField)
			if !id.Exists() || id.String() == "" {
				res.fail(fmt.Sprintf("%s[%d]", path, i), fmt.Sprintf("missing %q field", opts.IDField), nil)
				continue
			}
			addRecord(res, id.String(), value, opts.TextField, path)
		}
	default:
		return nil, fmt.Errorf("%s must hold a JSON object or array", path)
	}
	return res, nil
}

func addRecord(res *Result, id string, value gjson.Result, textField, source string) {
	var text gjson.Result
	switch {
	case value.Type == gjson.String:
		text = value
	case value.IsObject():
		text = value.Get(textField)
	}
	if !text.Exists() {
		res.fail(id, fmt.Sprintf("missing %q field", textField), nil)
		return
	}
	res.add(models.Comment{ID: id, Text: text.String(), Source: source})
}
