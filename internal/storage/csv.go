// ABOUTME: CSV result sink with append-mode resume and per-row flush
// ABOUTME: Columns: Comment ID, task label, votes per category, evidence counts
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harper/comment-classifier/internal/models"
)

const (
	idColumn          = "Comment ID"
	votePrefix        = "votes_"
	unparseableColumn = "unparseable_chunks"
	chunkCountColumn  = "chunk_count"
	tiedColumn        = "tied"
)

// CSVSink appends CommentResults to a CSV file
type CSVSink struct {
	file       *os.File
	writer     *csv.Writer
	header     []string
	categories models.CategorySet
	processed  map[string]bool
}

// Header returns the column layout for a task
func Header(labelColumn string, categories models.CategorySet) []string {
	header := []string{idColumn, labelColumn}
	for _, c := range categories {
		header = append(header, votePrefix+string(c))
	}
	return append(header, unparseableColumn, chunkCountColumn, tiedColumn)
}

// OpenCSV opens path for appending, writing the header for a new file and
// collecting the ids of an existing one. A header from a different task is a
// configuration error.
func OpenCSV(path, labelColumn string, categories models.CategorySet) (*CSVSink, error) {
	if labelColumn == "" {
		labelColumn = "Label"
	}
	s := &CSVSink{
		header:     Header(labelColumn, categories),
		categories: categories,
		processed:  make(map[string]bool),
	}

	existing, err := s.readExisting(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	s.file = file
	s.writer = csv.NewWriter(file)

	if !existing {
		if err := s.writeRow(s.header); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVSink) readExisting(path string) (bool, error) {
	f, err := os.Open(path) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read existing output: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read output header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(s.header, ",") {
		return false, models.NewConfigError("%s has columns %v, want %v (different task?)", path, header, s.header)
	}

	// rows are flushed whole, so a final row without its newline is the
	// remains of a write cut short; it is dropped and classified again
	complete := r.InputOffset()
	torn := false
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, next := r.Read(); next == io.EOF {
				torn = true
				break
			}
			return false, fmt.Errorf("failed to read existing output: %w", err)
		}
		end := r.InputOffset()
		ended, err := endsLine(f, end)
		if err != nil {
			return false, fmt.Errorf("failed to read existing output: %w", err)
		}
		if !ended {
			torn = true
			break
		}
		complete = end
		if len(rec) > 0 && rec[0] != "" {
			s.processed[rec[0]] = true
		}
	}

	if torn {
		if err := os.Truncate(path, complete); err != nil {
			return false, fmt.Errorf("failed to drop incomplete last row: %w", err)
		}
	}
	return true, nil
}

// endsLine reports whether the byte before offset end is a newline
func endsLine(f *os.File, end int64) (bool, error) {
	if end == 0 {
		return false, nil
	}
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, end-1); err != nil {
		return false, err
	}
	return b[0] == '\n', nil
}

// Processed returns ids present when the file was opened plus those written since
func (s *CSVSink) Processed() (map[string]bool, error) {
	out := make(map[string]bool, len(s.processed))
	for id := range s.processed {
		out[id] = true
	}
	return out, nil
}

// Write appends one row and flushes it to the file
func (s *CSVSink) Write(r models.CommentResult) error {
	row := []string{r.CommentID, string(r.FinalLabel)}
	for _, c := range s.categories {
		row = append(row, strconv.Itoa(r.VoteCounts[c]))
	}
	row = append(row, strconv.Itoa(r.UnparseableChunks), strconv.Itoa(r.ChunkCount), strconv.FormatBool(r.Tied))

	if err := s.writeRow(row); err != nil {
		return err
	}
	s.processed[r.CommentID] = true
	return nil
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}
	return nil
}

// Close flushes and closes the file
func (s *CSVSink) Close() error {
	s.writer.Flush()
	werr := s.writer.Error()
	cerr := s.file.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// ReadCSV parses a result file written by CSVSink
func ReadCSV(path string) ([]models.CommentResult, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read results header: %w", err)
	}
	if len(header) < 2 || header[0] != idColumn {
		return nil, fmt.Errorf("%s is not a results file: first column is %q", path, header[0])
	}

	var results []models.CommentResult
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read results: %w", err)
		}

		res := models.CommentResult{
			CommentID:  rec[0],
			FinalLabel: models.Category(rec[1]),
			VoteCounts: make(map[models.Category]int),
			State:      models.StateDone,
		}
		for i := 2; i < len(header) && i < len(rec); i++ {
			switch col := header[i]; {
			case strings.HasPrefix(col, votePrefix):
				res.VoteCounts[models.Category(strings.TrimPrefix(col, votePrefix))], _ = strconv.Atoi(rec[i])
			case col == unparseableColumn:
				res.UnparseableChunks, _ = strconv.Atoi(rec[i])
			case col == chunkCountColumn:
				res.ChunkCount, _ = strconv.Atoi(rec[i])
			case col == tiedColumn:
				res.Tied, _ = strconv.ParseBool(rec[i])
			}
		}
		if res.IsUnparseable() {
			res.State = models.StateFailed
		}
		results = append(results, res)
	}
	return results, nil
}
