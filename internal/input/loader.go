// ABOUTME: Loads consultation comments from a directory tree or a JSON list
// ABOUTME: Unreadable items become per-item input errors instead of failing the load
package input

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/harper/comment-classifier/internal/models"
)

// DefaultInclude matches every file below the input directory
const DefaultInclude = "**/*"

// Options control how an input path is read
type Options struct {
	// Include is a doublestar glob relative to the input directory
	Include string
	// IDField and TextField name the fields of array-style JSON lists
	IDField   string
	TextField string
}

func (o Options) withDefaults() Options {
	if o.Include == "" {
		o.Include = DefaultInclude
	}
	if o.IDField == "" {
		o.IDField = "id"
	}
	if o.TextField == "" {
		o.TextField = "comment"
	}
	return o
}

// Result holds the loaded comments in input order plus per-item failures
type Result struct {
	Comments []models.Comment
	Errors   []error
}

func (r *Result) add(c models.Comment) {
	r.Comments = append(r.Comments, c)
}

func (r *Result) fail(id, message string, cause error) {
	r.Errors = append(r.Errors, models.NewInputError(id, message, cause))
}

func (r *Result) merge(other *Result) {
	r.Comments = append(r.Comments, other.Comments...)
	r.Errors = append(r.Errors, other.Errors...)
}

// Load reads a directory of comment files, a JSON comment list, or one file
func Load(path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(path)
	if err != nil {
		return nil, models.NewConfigError("input path %s: %v", path, err)
	}
	if info.IsDir() {
		return LoadDir(path, opts)
	}

	res := &Result{}
	loadFile(path, opts, res)
	return res, nil
}

// LoadDir walks root in lexical order and loads every file matching the
// include glob. The comment id is the file name without its extension.
func LoadDir(root string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if !doublestar.ValidatePattern(opts.Include) {
		return nil, models.NewConfigError("invalid include pattern %q", opts.Include)
	}

	res := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(opts.Include, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if ok {
			loadFile(path, opts, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return res, nil
}

func loadFile(path string, opts Options, res *Result) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", ".md":
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			res.fail(id, "unreadable file", err)
			return
		}
		res.add(models.Comment{ID: id, Text: string(data), Source: path})

	case ".html", ".htm":
		text, err := htmlText(path)
		if err != nil {
			res.fail(id, "unreadable html", err)
			return
		}
		res.add(models.Comment{ID: id, Text: text, Source: path})

	case ".json":
		list, err := LoadList(path, opts)
		if err != nil {
			res.fail(id, "unreadable comment list", err)
			return
		}
		res.merge(list)

	case ".pdf", ".docx", ".rtf":
		res.fail(id, fmt.Sprintf("%s needs text extraction first", ext), nil)

	default:
		res.fail(id, fmt.Sprintf("unsupported file type %q", ext), nil)
	}
}

// htmlText returns the visible text of a page, one line per paragraph
func htmlText(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, noscript, head").Remove()
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n"), nil
}
