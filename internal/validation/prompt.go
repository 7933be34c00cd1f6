// ABOUTME: Interactive reviewer prompt reading labels line by line
// ABOUTME: Re-asks until the answer is one of the task's categories
package validation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harper/comment-classifier/internal/models"
)

// ErrStopped means the reviewer quit or input ended before all samples
var ErrStopped = errors.New("validation stopped")

// Prompter asks a reviewer for a label per sample
type Prompter struct {
	in         *bufio.Scanner
	out        io.Writer
	categories models.CategorySet
}

// NewPrompter reads answers from in and writes prompts to out
func NewPrompter(in io.Reader, out io.Writer, categories models.CategorySet) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out, categories: categories}
}

// Ask shows one sample and returns the reviewer's label. Typing "q" or
// closing input returns ErrStopped.
func (p *Prompter) Ask(s Sample) (models.Category, error) {
	choices := strings.Join(p.categories.Strings(), "/")
	_, _ = fmt.Fprintf(p.out, "Comment %s:\n%s\n\n", s.CommentID, strings.TrimSpace(s.Text))

	for {
		_, _ = fmt.Fprintf(p.out, "Your classification (%s, q to quit): ", choices)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return "", fmt.Errorf("failed to read answer: %w", err)
			}
			return "", ErrStopped
		}

		answer := strings.TrimSpace(p.in.Text())
		if strings.EqualFold(answer, "q") {
			return "", ErrStopped
		}
		if c, ok := p.categories.Parse(answer); ok {
			_, _ = fmt.Fprintln(p.out, strings.Repeat("-", 60))
			return c, nil
		}
		_, _ = fmt.Fprintf(p.out, "Please type one of: %s\n", choices)
	}
}

// Review asks about each sample in turn. Responses collected before the
// reviewer stops are returned along with ErrStopped.
func (p *Prompter) Review(ctx context.Context, samples []Sample) ([]Response, error) {
	responses := make([]Response, 0, len(samples))
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return responses, ErrStopped
		}
		label, err := p.Ask(s)
		if err != nil {
			return responses, err
		}
		responses = append(responses, Response{CommentID: s.CommentID, ModelLabel: s.ModelLabel, UserLabel: label})
	}
	return responses, nil
}
