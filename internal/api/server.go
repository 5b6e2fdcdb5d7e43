// Package api serves the public content API and the admin API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pbaille/folio/internal/activity"
	"github.com/pbaille/folio/internal/assistant"
	"github.com/pbaille/folio/internal/auth"
	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/gallery"
	"github.com/pbaille/folio/internal/render"
	"github.com/pbaille/folio/internal/site"
	"github.com/pbaille/folio/internal/upload"
)

// Deps are the collaborators the server is built from. Assistant and
// Activity are optional.
type Deps struct {
	Work      *content.Store
	Writing   *content.Store
	Gallery   *gallery.Store
	Auth      *auth.Authenticator
	Uploader  *upload.Uploader
	Assistant assistant.Assistant
	Activity  *activity.Log
	Logger    *zap.Logger

	BaseURL    string
	PublicDir  string
	CORSOrigin string
}

// Server handles HTTP requests for the site
type Server struct {
	Deps
	site     *site.Site
	renderer *render.Renderer
	now      func() time.Time
}

// New creates a new API server
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{
		Deps:     d,
		site:     site.New(d.Work, d.Writing, d.Gallery),
		renderer: render.New(),
		now:      time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if s.CORSOrigin != "" {
		r.Use(withCORS(s.CORSOrigin))
	}

	// Health check
	r.Get("/health", s.health)
	r.Get("/sitemap.xml", s.sitemap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/work", s.listProjects)
		r.Get("/work/featured", s.listFeatured)
		r.Get("/work/{slug}", s.getProject)
		r.Get("/writing", s.listPosts)
		r.Get("/writing/{slug}", s.getPost)
		r.Get("/gallery", s.listGallery)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/auth", s.login)
			r.Delete("/auth", s.logout)
			r.Get("/auth", s.session)

			r.Group(func(r chi.Router) {
				r.Use(s.Auth.Require)

				r.Get("/projects", s.adminListProjects)
				r.Post("/projects", s.createDocument(s.Work))
				r.Put("/projects", s.updateDocument(s.Work))
				r.Delete("/projects", s.deleteDocument(s.Work))

				r.Get("/posts", s.adminListPosts)
				r.Post("/posts", s.createDocument(s.Writing))
				r.Put("/posts", s.updateDocument(s.Writing))
				r.Delete("/posts", s.deleteDocument(s.Writing))

				r.Get("/gallery", s.listGallery)
				r.Post("/gallery", s.createGalleryItem)
				r.Put("/gallery", s.updateGalleryItem)
				r.Delete("/gallery", s.deleteGalleryItem)

				r.Post("/upload", s.upload)
				r.Post("/ai", s.categorize)
				r.Post("/ai/format", s.format)

				r.Get("/activity", s.listActivity)
				r.Get("/stats", s.stats)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	if s.PublicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.PublicDir)))
	}

	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps store and collaborator errors onto status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, content.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, content.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, assistant.ErrUpstream):
		s.Logger.Warn("assistant call failed", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, http.StatusBadGateway, "AI request failed")
	default:
		s.Logger.Error("request failed", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// record journals a successful mutation. Failures are logged only.
func (s *Server) record(kind, key, action string) {
	if s.Activity == nil {
		return
	}
	if _, err := s.Activity.Record(kind, key, action); err != nil {
		s.Logger.Warn("record activity", zap.Error(err), zap.String("kind", kind), zap.String("key", key))
	}
}
