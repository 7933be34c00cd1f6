// ABOUTME: Human spot-check of model labels: sampling, agreement and Cohen's kappa
// ABOUTME: Responses are written to a CSV next to the classification output
package validation

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/harper/comment-classifier/internal/models"
)

// DefaultOutput is the file validation responses are written to
const DefaultOutput = "validation_results.csv"

// Sample is one classified comment shown to the reviewer
type Sample struct {
	CommentID  string
	Text       string
	ModelLabel models.Category
}

// Response pairs the model's label with the reviewer's
type Response struct {
	CommentID  string
	ModelLabel models.Category
	UserLabel  models.Category
}

// Agrees reports whether reviewer and model chose the same label
func (r Response) Agrees() bool {
	return r.ModelLabel == r.UserLabel
}

// SelectSamples draws up to n results at random that have a usable label
// and whose text is known. rng may be nil.
func SelectSamples(results []models.CommentResult, texts map[string]string, n int, rng *rand.Rand) []Sample {
	var pool []Sample
	for _, r := range results {
		if r.IsUnparseable() {
			continue
		}
		text, ok := texts[r.CommentID]
		if !ok {
			continue
		}
		pool = append(pool, Sample{CommentID: r.CommentID, Text: text, ModelLabel: r.FinalLabel})
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if n < len(pool) {
		pool = pool[:n]
	}
	return pool
}

// Report summarizes reviewer agreement
type Report struct {
	Total     int
	Agreed    int
	Agreement float64 // percent
	Kappa     float64
}

// Summarize computes percent agreement and Cohen's kappa over responses
func Summarize(responses []Response) Report {
	rep := Report{Total: len(responses)}
	if rep.Total == 0 {
		return rep
	}
	for _, r := range responses {
		if r.Agrees() {
			rep.Agreed++
		}
	}
	rep.Agreement = 100 * float64(rep.Agreed) / float64(rep.Total)
	rep.Kappa = CohenKappa(responses)
	return rep
}

// CohenKappa is (po - pe) / (1 - pe), with pe from each rater's label
// frequencies. When both raters used one and the same label throughout,
// chance agreement is total and kappa is defined as 1.
func CohenKappa(responses []Response) float64 {
	n := float64(len(responses))
	if n == 0 {
		return 0
	}

	modelFreq := make(map[models.Category]float64)
	userFreq := make(map[models.Category]float64)
	var agreed float64
	for _, r := range responses {
		modelFreq[r.ModelLabel]++
		userFreq[r.UserLabel]++
		if r.Agrees() {
			agreed++
		}
	}

	po := agreed / n
	var pe float64
	for label, m := range modelFreq {
		pe += (m / n) * (userFreq[label] / n)
	}
	if pe == 1 {
		return 1
	}
	return (po - pe) / (1 - pe)
}

// WriteCSV stores the responses with an agrees column
func WriteCSV(path string, responses []Response) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"comment_id", "model_label", "user_label", "agrees"})
	for _, r := range responses {
		_ = w.Write([]string{r.CommentID, string(r.ModelLabel), string(r.UserLabel), strconv.FormatBool(r.Agrees())})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
