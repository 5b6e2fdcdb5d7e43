package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/domain"
	"github.com/pbaille/folio/internal/frontmatter"
	"github.com/pbaille/folio/internal/gallery"
)

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	if !s.Auth.CheckPassword(req.Password) {
		s.Logger.Warn("failed admin login", zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := s.Auth.IssueToken()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.Auth.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": s.Auth.Authenticated(r)})
}

func (s *Server) adminListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.site.WorkProjects()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) adminListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.site.WritingPosts()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// documentInput splits a JSON document body into its slug and the fields
// the store understands. "content" is the Markdown body; null values count
// as absent.
func documentInput(kind content.Kind, body map[string]any) (string, content.Input, error) {
	slug, _ := body["slug"].(string)

	var in content.Input
	if c, ok := body["content"]; ok && c != nil {
		text, ok := c.(string)
		if !ok {
			return "", in, fmt.Errorf("%w: content must be a string", content.ErrInvalidInput)
		}
		in.Body = &text
	}

	for _, f := range kind.Fields {
		raw, ok := body[f.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := jsonValue(raw)
		if err != nil {
			return "", in, fmt.Errorf("%w: field %s: %w", content.ErrInvalidInput, f.Name, err)
		}
		in.Meta = append(in.Meta, frontmatter.Field{Key: f.Name, Value: v})
	}
	return strings.TrimSpace(slug), in, nil
}

func jsonValue(raw any) (frontmatter.Value, error) {
	switch v := raw.(type) {
	case string:
		return frontmatter.String(v), nil
	case bool:
		return frontmatter.Bool(v), nil
	case float64:
		return frontmatter.Number(v), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return frontmatter.Value{}, fmt.Errorf("list items must be strings")
			}
			items = append(items, str)
		}
		return frontmatter.List(items...), nil
	default:
		return frontmatter.Value{}, fmt.Errorf("unsupported value %T", raw)
	}
}

func (s *Server) createDocument(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		slug, in, err := documentInput(store.Kind(), body)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if title, _ := in.Meta.GetString("title"); slug == "" || title == "" {
			writeError(w, http.StatusBadRequest, "Slug and title are required")
			return
		}

		if _, err := store.Create(slug, in); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		s.record(store.Kind().Name, slug, domain.ActionCreate)

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "slug": slug})
	}
}

func (s *Server) updateDocument(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		slug, in, err := documentInput(store.Kind(), body)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if slug == "" {
			writeError(w, http.StatusBadRequest, "Slug is required")
			return
		}

		if _, err := store.Update(slug, in); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		s.record(store.Kind().Name, slug, domain.ActionUpdate)

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "slug": slug})
	}
}

func (s *Server) deleteDocument(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.URL.Query().Get("slug")
		if slug == "" {
			writeError(w, http.StatusBadRequest, "Slug is required")
			return
		}

		if err := store.Delete(slug); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		s.record(store.Kind().Name, slug, domain.ActionDelete)

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// GalleryRequest is the request body for gallery mutations
type GalleryRequest struct {
	ID       string  `json:"id"`
	Src      string  `json:"src"`
	Title    *string `json:"title"`
	Category string  `json:"category"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

func (g GalleryRequest) input() gallery.Input {
	return gallery.Input{Src: g.Src, Title: g.Title, Category: g.Category, Width: g.Width, Height: g.Height}
}

func (s *Server) createGalleryItem(w http.ResponseWriter, r *http.Request) {
	var req GalleryRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.Gallery.Create(req.input())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.record("gallery", item.ID, domain.ActionCreate)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

func (s *Server) updateGalleryItem(w http.ResponseWriter, r *http.Request) {
	var req GalleryRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	item, err := s.Gallery.Update(req.ID, req.input())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.record("gallery", item.ID, domain.ActionUpdate)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

func (s *Server) deleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	if err := s.Gallery.Delete(id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.record("gallery", id, domain.ActionDelete)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	res, err := s.Uploader.FromRequest(w, r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CategorizeRequest is the request body for image categorisation
type CategorizeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

// maxImageBody fits a base64-encoded upload of upload.MaxSize.
const maxImageBody = 16 << 20

func (s *Server) categorize(w http.ResponseWriter, r *http.Request) {
	if s.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant not configured")
		return
	}

	var req CategorizeRequest
	if err := decodeJSON(w, r, maxImageBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}

	// Browsers send data URLs; keep only the payload.
	data := req.ImageBase64
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image is not valid base64")
		return
	}

	suggestion, err := s.Assistant.Categorize(r.Context(), image, req.MimeType)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// FormatRequest is the request body for Markdown formatting
type FormatRequest struct {
	Content string `json:"content"`
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) {
	if s.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant not configured")
		return
	}

	var req FormatRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "No content provided")
		return
	}

	formatted, err := s.Assistant.Format(r.Context(), req.Content)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"formatted": formatted})
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	if s.Activity == nil {
		writeJSON(w, http.StatusOK, []domain.Activity{})
		return
	}

	q := r.URL.Query()
	if kind, key := q.Get("kind"), q.Get("key"); kind != "" && key != "" {
		entries, err := s.Activity.History(kind, key)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	limit := 20
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, 200)
		}
	}

	entries, err := s.Activity.Recent(limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stats is the admin dashboard summary.
type Stats struct {
	Projects     int              `json:"projects"`
	Featured     int              `json:"featured"`
	Posts        int              `json:"posts"`
	Gallery      int              `json:"gallery"`
	LastActivity *domain.Activity `json:"lastActivity"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	projects, err := s.site.WorkProjects()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	posts, err := s.site.WritingPosts()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	items, err := s.site.Gallery()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	st := Stats{Projects: len(projects), Posts: len(posts), Gallery: len(items)}
	for _, p := range projects {
		if p.Featured {
			st.Featured++
		}
	}
	if s.Activity != nil {
		recent, err := s.Activity.Recent(1)
		if err != nil {
			s.Logger.Warn("read activity", zap.Error(err))
		} else if len(recent) > 0 {
			st.LastActivity = &recent[0]
		}
	}

	writeJSON(w, http.StatusOK, st)
}
