// Package site is the read side used by the public pages: sorted and
// filtered views over the content stores. Nothing is cached; every call
// re-reads the files.
package site

import (
	"errors"
	"slices"
	"time"

	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/domain"
	"github.com/pbaille/folio/internal/gallery"
)

// Site aggregates the three content stores.
type Site struct {
	work    *content.Store
	writing *content.Store
	gallery *gallery.Store
}

// New returns a Site reading from the given stores.
func New(work, writing *content.Store, g *gallery.Store) *Site {
	return &Site{work: work, writing: writing, gallery: g}
}

// WorkProjects returns every project sorted by order ascending. Projects
// sharing an order keep filename order.
func (s *Site) WorkProjects() ([]domain.Project, error) {
	docs, err := s.work.List()
	if err != nil {
		return nil, err
	}

	projects := make([]domain.Project, len(docs))
	for i, d := range docs {
		projects[i] = content.ProjectFromDocument(d)
	}
	slices.SortStableFunc(projects, func(a, b domain.Project) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		default:
			return 0
		}
	})
	return projects, nil
}

// FeaturedProjects returns the featured subset of WorkProjects.
func (s *Site) FeaturedProjects() ([]domain.Project, error) {
	projects, err := s.WorkProjects()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(projects, func(p domain.Project) bool { return !p.Featured }), nil
}

// ProjectBySlug returns the project stored under slug. ok is false when it
// does not exist.
func (s *Site) ProjectBySlug(slug string) (p domain.Project, ok bool, err error) {
	doc, err := s.work.Get(slug)
	if absent(err) {
		return domain.Project{}, false, nil
	}
	if err != nil {
		return domain.Project{}, false, err
	}
	return content.ProjectFromDocument(doc), true, nil
}

// WritingPosts returns every post, newest first. Posts whose date cannot be
// parsed sort after all dated posts, in filename order.
func (s *Site) WritingPosts() ([]domain.Post, error) {
	docs, err := s.writing.List()
	if err != nil {
		return nil, err
	}

	type dated struct {
		post domain.Post
		at   time.Time
		ok   bool
	}
	all := make([]dated, len(docs))
	for i, d := range docs {
		p := content.PostFromDocument(d)
		at, ok := ParseDate(p.Date)
		all[i] = dated{post: p, at: at, ok: ok}
	}

	slices.SortStableFunc(all, func(a, b dated) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok && !b.ok:
			return 0
		}
		return b.at.Compare(a.at)
	})

	posts := make([]domain.Post, len(all))
	for i, d := range all {
		posts[i] = d.post
	}
	return posts, nil
}

// PostBySlug returns the post stored under slug.
func (s *Site) PostBySlug(slug string) (domain.Post, bool, error) {
	doc, err := s.writing.Get(slug)
	if absent(err) {
		return domain.Post{}, false, nil
	}
	if err != nil {
		return domain.Post{}, false, err
	}
	return content.PostFromDocument(doc), true, nil
}

// NextPost returns the post following slug in WritingPosts order, that is
// the next older post. ok is false for the oldest post or an unknown slug.
func (s *Site) NextPost(slug string) (domain.Post, bool, error) {
	posts, err := s.WritingPosts()
	if err != nil {
		return domain.Post{}, false, err
	}
	i := slices.IndexFunc(posts, func(p domain.Post) bool { return p.Slug == slug })
	if i < 0 || i == len(posts)-1 {
		return domain.Post{}, false, nil
	}
	return posts[i+1], true, nil
}

// Gallery returns the gallery items in stored order.
func (s *Site) Gallery() ([]domain.GalleryItem, error) {
	return s.gallery.List()
}

func absent(err error) bool {
	return errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrInvalidInput)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate accepts the date formats found in frontmatter.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
