package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/pbaille/folio/internal/frontmatter"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Document is one Markdown file of a collection.
type Document struct {
	Slug string
	Meta frontmatter.Metadata
	Body string
}

// Input carries the fields supplied to Create or Update. Meta holds only the
// fields the caller provided. A nil Body leaves the body untouched on update;
// a non-nil empty Body clears it.
type Input struct {
	Meta frontmatter.Metadata
	Body *string
}

// Store is a directory of Markdown documents keyed by slug. The directory is
// the only source of truth: every call re-reads it. Mutations are serialised
// within the process; writers in other processes still race with last
// writer wins.
type Store struct {
	kind   Kind
	dir    string
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewStore returns a Store for kind rooted at contentDir/kind.Dir.
func NewStore(contentDir string, kind Kind, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kind:   kind,
		dir:    filepath.Join(contentDir, kind.Dir),
		logger: logger.With(zap.String("kind", kind.Name)),
		now:    time.Now,
	}
}

// Kind returns the collection this store manages.
func (s *Store) Kind() Kind {
	return s.kind
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(slug string) string {
	return filepath.Join(s.dir, slug+s.kind.Ext)
}

// List returns every document in filename order. A missing directory is an
// empty collection. A file that cannot be read is returned with empty
// metadata rather than failing the listing. Files whose name is not a valid
// slug are skipped since Get and Delete could never address them.
func (s *Store) List() ([]Document, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, s.dir, err)
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.kind.Ext) {
			continue
		}
		slug := strings.TrimSuffix(e.Name(), s.kind.Ext)
		if ValidateSlug(slug) != nil {
			s.logger.Warn("skipping document with invalid slug", zap.String("file", e.Name()))
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("unreadable document", zap.String("slug", slug), zap.Error(err))
			docs = append(docs, Document{Slug: slug, Meta: frontmatter.Metadata{}})
			continue
		}

		meta, body := frontmatter.Parse(string(raw))
		docs = append(docs, Document{Slug: slug, Meta: meta, Body: body})
	}

	return docs, nil
}

// Get returns the document stored under slug.
func (s *Store) Get(slug string) (Document, error) {
	if err := ValidateSlug(slug); err != nil {
		return Document{}, err
	}
	return s.read(slug)
}

func (s *Store) read(slug string) (Document, error) {
	raw, err := os.ReadFile(s.path(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, fmt.Errorf("%w: %s %q", ErrNotFound, s.kind.Name, slug)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: read %s: %w", ErrIO, slug, err)
	}

	meta, body := frontmatter.Parse(string(raw))
	return Document{Slug: slug, Meta: meta, Body: body}, nil
}

// Create writes a new document. slug and a non-empty title are required;
// fields not supplied get the kind's defaults.
func (s *Store) Create(slug string, in Input) (Document, error) {
	if err := ValidateSlug(slug); err != nil {
		return Document{}, err
	}
	if title, _ := in.Meta.GetString("title"); title == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	meta, err := s.kind.merge(s.kind.defaults(s.now()), in.Meta)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Slug: slug, Meta: meta}
	if in.Body != nil {
		doc.Body = *in.Body
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(slug)); err == nil {
		return Document{}, fmt.Errorf("%w: %s %q", ErrAlreadyExists, s.kind.Name, slug)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Document{}, fmt.Errorf("%w: stat %s: %w", ErrIO, slug, err)
	}

	if err := os.MkdirAll(s.dir, dirPerms); err != nil {
		return Document{}, fmt.Errorf("%w: create %s: %w", ErrIO, s.dir, err)
	}
	if err := s.write(doc); err != nil {
		return Document{}, err
	}

	s.logger.Info("document created", zap.String("slug", slug))
	return doc, nil
}

// Update merges in over the stored document. The slug is never changed: a
// "slug" key in in.Meta is ignored.
func (s *Store) Update(slug string, in Input) (Document, error) {
	if err := ValidateSlug(slug); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(slug)
	if err != nil {
		return Document{}, err
	}

	meta, err := s.kind.merge(current.Meta, in.Meta)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Slug: slug, Meta: meta, Body: current.Body}
	if in.Body != nil {
		doc.Body = *in.Body
	}

	if err := s.write(doc); err != nil {
		return Document{}, err
	}

	s.logger.Info("document updated", zap.String("slug", slug))
	return doc, nil
}

// Delete removes the document stored under slug.
func (s *Store) Delete(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s %q", ErrNotFound, s.kind.Name, slug)
	}
	if err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, slug, err)
	}

	s.logger.Info("document deleted", zap.String("slug", slug))
	return nil
}

func (s *Store) write(doc Document) error {
	raw, err := frontmatter.Serialize(doc.Meta, doc.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return WriteFile(s.path(doc.Slug), []byte(raw))
}

// WriteFile replaces path atomically with data.
func WriteFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, path, err)
	}
	return nil
}
