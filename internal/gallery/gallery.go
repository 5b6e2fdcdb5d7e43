// Package gallery stores gallery images as a single JSON array on disk.
package gallery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/domain"
)

// Defaults applied to new items.
const (
	DefaultCategory  = "Uncategorized"
	DefaultDimension = 800
)

// Input holds the fields supplied to Create or Update. Title is a pointer so
// that an explicit empty title can clear the previous one.
type Input struct {
	Src      string
	Title    *string
	Category string
	Width    int
	Height   int
}

// Store is the gallery file. Every call re-reads it and every mutation
// rewrites it whole.
type Store struct {
	path   string
	logger *zap.Logger
	newID  func() string
	mu     sync.Mutex
}

// NewStore returns a Store backed by path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		logger: logger.With(zap.String("kind", "gallery")),
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// List returns the items in stored order. A missing or unparsable file is
// an empty gallery.
func (s *Store) List() ([]domain.GalleryItem, error) {
	return s.load()
}

func (s *Store) load() ([]domain.GalleryItem, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.GalleryItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", content.ErrIO, s.path, err)
	}

	// Hand edits may leave comments or trailing commas behind.
	std, err := hujson.Standardize(raw)
	if err != nil {
		s.logger.Warn("gallery file is not valid JSON, treating as empty", zap.Error(err))
		return []domain.GalleryItem{}, nil
	}

	items, err := decodeItems(std)
	if err != nil {
		s.logger.Warn("gallery file is not a list of items, treating as empty", zap.Error(err))
		return []domain.GalleryItem{}, nil
	}
	return items, nil
}

// decodeItems reads a JSON array of objects. Field types are coerced rather
// than enforced so that a hand-edited file with a numeric id or fractional
// dimension is not mistaken for a corrupt one and wiped by the next write.
func decodeItems(data []byte) ([]domain.GalleryItem, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	items := make([]domain.GalleryItem, 0, len(raw))
	for _, obj := range raw {
		items = append(items, domain.GalleryItem{
			ID:       stringField(obj["id"]),
			Src:      stringField(obj["src"]),
			Title:    stringField(obj["title"]),
			Category: stringField(obj["category"]),
			Width:    intField(obj["width"]),
			Height:   intField(obj["height"]),
		})
	}
	return items, nil
}

func stringField(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intField(v any) int {
	switch v := v.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil && !math.IsInf(f, 0) {
			return int(math.Round(f))
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int(math.Round(f))
		}
	}
	return 0
}

func (s *Store) save(items []domain.GalleryItem) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode gallery: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", content.ErrIO, filepath.Dir(s.path), err)
	}
	return content.WriteFile(s.path, bytes.TrimRight(buf.Bytes(), "\n"))
}

// Create appends a new item. Src is required.
func (s *Store) Create(in Input) (domain.GalleryItem, error) {
	if in.Src == "" {
		return domain.GalleryItem{}, fmt.Errorf("%w: image source is required", content.ErrInvalidInput)
	}

	item := domain.GalleryItem{
		ID:       s.newID(),
		Src:      in.Src,
		Category: in.Category,
		Width:    in.Width,
		Height:   in.Height,
	}
	if in.Title != nil {
		item.Title = *in.Title
	}
	if item.Category == "" {
		item.Category = DefaultCategory
	}
	if item.Width <= 0 {
		item.Width = DefaultDimension
	}
	if item.Height <= 0 {
		item.Height = DefaultDimension
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return domain.GalleryItem{}, err
	}
	items = append(items, item)
	if err := s.save(items); err != nil {
		return domain.GalleryItem{}, err
	}

	s.logger.Info("gallery item created", zap.String("id", item.ID))
	return item, nil
}

// Update overwrites the fields of item id that in provides: src and
// category when non-empty, title whenever set, dimensions when positive.
func (s *Store) Update(id string, in Input) (domain.GalleryItem, error) {
	if id == "" {
		return domain.GalleryItem{}, fmt.Errorf("%w: id is required", content.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return domain.GalleryItem{}, err
	}

	i := slices.IndexFunc(items, func(it domain.GalleryItem) bool { return it.ID == id })
	if i < 0 {
		return domain.GalleryItem{}, fmt.Errorf("%w: gallery item %q", content.ErrNotFound, id)
	}

	item := &items[i]
	if in.Src != "" {
		item.Src = in.Src
	}
	if in.Title != nil {
		item.Title = *in.Title
	}
	if in.Category != "" {
		item.Category = in.Category
	}
	if in.Width > 0 {
		item.Width = in.Width
	}
	if in.Height > 0 {
		item.Height = in.Height
	}

	if err := s.save(items); err != nil {
		return domain.GalleryItem{}, err
	}

	s.logger.Info("gallery item updated", zap.String("id", id))
	return *item, nil
}

// Delete removes item id.
func (s *Store) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", content.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	kept := slices.DeleteFunc(slices.Clone(items), func(it domain.GalleryItem) bool { return it.ID == id })
	if len(kept) == len(items) {
		return fmt.Errorf("%w: gallery item %q", content.ErrNotFound, id)
	}
	if err := s.save(kept); err != nil {
		return err
	}

	s.logger.Info("gallery item deleted", zap.String("id", id))
	return nil
}
