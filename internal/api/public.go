package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pbaille/folio/internal/domain"
	"github.com/pbaille/folio/internal/render"
	"github.com/pbaille/folio/internal/site"
)

const summaryLength = 160

// ProjectView is a project as served to the public pages.
type ProjectView struct {
	domain.Project
	HTML string `json:"html,omitempty"`
}

// PostLink points at another post.
type PostLink struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// PostView is a post as served to the public pages.
type PostView struct {
	domain.Post
	HTML string    `json:"html,omitempty"`
	Next *PostLink `json:"next"`
}

// presentProject fills the fields a page needs when the author left them
// empty.
func (s *Server) presentProject(p domain.Project) domain.Project {
	if p.Title == "" {
		p.Title = render.DisplayTitle(p.Slug)
	}
	if p.Description == "" && p.Content != "" {
		p.Description = s.renderer.Summary(p.Content, summaryLength)
	}
	return p
}

func (s *Server) presentPost(p domain.Post) domain.Post {
	if p.Title == "" {
		p.Title = render.DisplayTitle(p.Slug)
	}
	if p.Excerpt == "" && p.Content != "" {
		p.Excerpt = s.renderer.Summary(p.Content, summaryLength)
	}
	return p
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.site.WorkProjects()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for i := range projects {
		projects[i] = s.presentProject(projects[i])
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) listFeatured(w http.ResponseWriter, r *http.Request) {
	projects, err := s.site.FeaturedProjects()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for i := range projects {
		projects[i] = s.presentProject(projects[i])
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, ok, err := s.site.ProjectBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	html, err := s.renderer.HTML(project.Content)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectView{Project: s.presentProject(project), HTML: html})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.site.WritingPosts()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for i := range posts {
		posts[i] = s.presentPost(posts[i])
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, ok, err := s.site.PostBySlug(slug)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	html, err := s.renderer.HTML(post.Content)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	view := PostView{Post: s.presentPost(post), HTML: html}

	next, ok, err := s.site.NextPost(slug)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if ok {
		next = s.presentPost(next)
		view.Next = &PostLink{Slug: next.Slug, Title: next.Title, Date: next.Date}
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listGallery(w http.ResponseWriter, r *http.Request) {
	items, err := s.site.Gallery()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	urls, err := s.site.Sitemap(s.BaseURL, s.now())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := site.WriteSitemap(&buf, urls); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write(buf.Bytes())
}
