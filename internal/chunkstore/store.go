// Package chunkstore holds the precomputed table of subtitle chunks and their
// embeddings. The table is produced offline and is read-only once loaded.
package chunkstore

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"courseguide/internal/domain"
)

// Artifact encodings understood by Load.
const (
	FormatJSON   = "json"
	FormatBolt   = "bolt"
	FormatSQLite = "sqlite"
)

// Store is an ordered, immutable collection of chunks. It is safe for
// concurrent reads.
type Store struct {
	path      string
	dimension int
	chunks    []domain.Chunk
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	format   string
	progress func(done, total int)
}

// WithFormat forces the artifact encoding instead of guessing it from the file extension.
func WithFormat(format string) Option {
	return func(o *loadOptions) { o.format = format }
}

// WithProgress registers a callback invoked as rows are validated.
func WithProgress(fn func(done, total int)) Option {
	return func(o *loadOptions) { o.progress = fn }
}

// record is the on-disk shape of one row. Pointer fields distinguish a
// missing column from a zero value.
type record struct {
	Title     *string   `json:"title"`
	Number    *float64  `json:"number"`
	Start     *float64  `json:"start"`
	End       *float64  `json:"end"`
	Text      *string   `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// Load reads the chunk artifact at path. Any failure is reported as a *domain.LoadError.
func Load(path string, opts ...Option) (*Store, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	format := o.format
	if format == "" {
		format = FormatFromPath(path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}

	var (
		recs []record
		err  error
	)
	switch format {
	case FormatJSON:
		recs, err = readJSON(path)
	case FormatBolt:
		recs, err = readBolt(path)
	case FormatSQLite:
		recs, err = readSQLite(path)
	default:
		err = fmt.Errorf("unknown artifact format %q", format)
	}
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}

	chunks, dim, err := build(recs, o.progress)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	return &Store{path: path, dimension: dim, chunks: chunks}, nil
}

// FormatFromPath guesses the artifact encoding from the file extension.
// Unknown extensions are treated as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt", ".bbolt":
		return FormatBolt
	case ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatJSON
	}
}

func build(recs []record, progress func(done, total int)) ([]domain.Chunk, int, error) {
	chunks := make([]domain.Chunk, 0, len(recs))
	dim := 0
	for i, r := range recs {
		if err := r.validate(); err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i, err)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return nil, 0, fmt.Errorf("row %d: embedding has %d dimensions, expected %d", i, len(r.Embedding), dim)
		}
		chunks = append(chunks, domain.Chunk{
			Index:     i,
			Title:     *r.Title,
			Number:    int(*r.Number),
			Start:     *r.Start,
			End:       *r.End,
			Text:      *r.Text,
			Embedding: r.Embedding,
		})
		if progress != nil {
			progress(i+1, len(recs))
		}
	}
	return chunks, dim, nil
}

func (r record) validate() error {
	switch {
	case r.Title == nil:
		return errors.New(`missing field "title"`)
	case r.Number == nil:
		return errors.New(`missing field "number"`)
	case r.Start == nil:
		return errors.New(`missing field "start"`)
	case r.End == nil:
		return errors.New(`missing field "end"`)
	case r.Text == nil:
		return errors.New(`missing field "text"`)
	case len(r.Embedding) == 0:
		return errors.New(`missing field "embedding"`)
	}
	if *r.Number != math.Trunc(*r.Number) {
		return fmt.Errorf("video number %v is not an integer", *r.Number)
	}
	return nil
}

// Path returns the artifact the store was loaded from.
func (s *Store) Path() string { return s.path }

// Size returns the number of chunks.
func (s *Store) Size() int { return len(s.chunks) }

// Dimension returns the shared embedding dimensionality, or 0 for an empty store.
func (s *Store) Dimension() int { return s.dimension }

// All returns the chunks in row order. The slice is shared and must not be modified.
func (s *Store) All() []domain.Chunk { return s.chunks }

// Titles returns the distinct video titles in first-seen order.
func (s *Store) Titles() []string {
	seen := make(map[string]struct{})
	var titles []string
	for _, c := range s.chunks {
		if _, ok := seen[c.Title]; ok {
			continue
		}
		seen[c.Title] = struct{}{}
		titles = append(titles, c.Title)
	}
	return titles
}
