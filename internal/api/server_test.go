package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/folio/internal/activity"
	"github.com/pbaille/folio/internal/assistant"
	"github.com/pbaille/folio/internal/auth"
	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/domain"
	"github.com/pbaille/folio/internal/gallery"
	"github.com/pbaille/folio/internal/upload"
)

const testPassword = "correct horse"

type fakeAssistant struct {
	suggestion assistant.Suggestion
	formatted  string
	err        error
}

func (f *fakeAssistant) Categorize(ctx context.Context, image []byte, mimeType string) (assistant.Suggestion, error) {
	return f.suggestion, f.err
}

func (f *fakeAssistant) Format(ctx context.Context, text string) (string, error) {
	return f.formatted, f.err
}

type testServer struct {
	t       *testing.T
	dir     string
	handler http.Handler
	ai      *fakeAssistant
	log     *activity.Log
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")
	publicDir := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(publicDir, 0o755))

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := auth.New(auth.Config{PasswordHash: string(hash), Secret: "test-secret"}, zap.NewNop())
	require.NoError(t, err)

	log, err := activity.Open(filepath.Join(dir, "activity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	ai := &fakeAssistant{}
	srv := New(Deps{
		Work:      content.NewStore(contentDir, content.Work, nil),
		Writing:   content.NewStore(contentDir, content.Writing, nil),
		Gallery:   gallery.NewStore(filepath.Join(contentDir, "gallery.json"), nil),
		Auth:      authn,
		Uploader:  upload.New(publicDir, nil),
		Assistant: ai,
		Activity:  log,
		BaseURL:   "https://example.com",
		PublicDir: publicDir,
	})
	srv.now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }

	return &testServer{t: t, dir: dir, handler: srv.Handler(), ai: ai, log: log}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login() {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/admin/auth", map[string]string{"password": testPassword})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			ts.cookie = c
		}
	}
	require.NotNil(ts.t, ts.cookie)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/admin/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/auth", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/auth", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/admin/auth", nil)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	ts.login()

	rec = ts.do(http.MethodGet, "/api/admin/auth", nil)
	assert.JSONEq(t, `{"authenticated":true}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/admin/projects", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/admin/auth", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestProjectLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.login()

	rec := ts.do(http.MethodPost, "/api/admin/projects", map[string]any{"slug": "existing", "title": "Existing", "order": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/projects", map[string]any{"title": "No slug"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Slug and title are required"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/projects", map[string]any{
		"slug": "launch", "title": "Launch", "featured": true, "order": 5,
		"images": []string{"/a.jpg"}, "content": "## Process\n\nIt shipped.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"slug":"launch"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/projects", map[string]any{"slug": "launch", "title": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	featured := decode[[]domain.Project](t, ts.do(http.MethodGet, "/api/work/featured", nil))
	require.Len(t, featured, 1)
	assert.Equal(t, "launch", featured[0].Slug)
	assert.Equal(t, "Process It shipped.", featured[0].Description)

	rec = ts.do(http.MethodPut, "/api/admin/projects", map[string]any{"slug": "launch", "order": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	all := decode[[]domain.Project](t, ts.do(http.MethodGet, "/api/work", nil))
	require.Len(t, all, 2)
	assert.Equal(t, "launch", all[0].Slug)
	assert.Equal(t, []string{"/a.jpg"}, all[0].Images, "update without images keeps them")

	view := decode[ProjectView](t, ts.do(http.MethodGet, "/api/work/launch", nil))
	assert.Contains(t, view.HTML, `<h2 id="process">Process</h2>`)
	assert.Equal(t, "Launch", view.Title)

	rec = ts.do(http.MethodPut, "/api/admin/projects", map[string]any{"slug": "ghost", "title": "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/api/admin/projects", map[string]any{"slug": "launch", "featured": "yes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/admin/projects?slug=launch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/admin/projects?slug=launch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/admin/projects", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/work/launch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := decode[[]domain.Activity](t, ts.do(http.MethodGet, "/api/admin/activity?limit=10", nil))
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ActionDelete, entries[0].Action)
	assert.Equal(t, "work", entries[0].Kind)
	assert.Equal(t, "launch", entries[0].Key)

	history := decode[[]domain.Activity](t, ts.do(http.MethodGet, "/api/admin/activity?kind=work&key=launch", nil))
	require.Len(t, history, 3)
	var actions []string
	for _, a := range history {
		assert.Equal(t, "launch", a.Key)
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []string{domain.ActionDelete, domain.ActionUpdate, domain.ActionCreate}, actions)

	history = decode[[]domain.Activity](t, ts.do(http.MethodGet, "/api/admin/activity?kind=work&key=ghost", nil))
	assert.Empty(t, history)
}

func TestPosts(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.login()

	for _, p := range []map[string]any{
		{"slug": "old", "title": "Old", "date": "2023-12-01", "content": "Old body"},
		{"slug": "new", "title": "New", "date": "2024-06-01", "content": "First *post* body."},
		{"slug": "mid", "title": "", "date": "2024-01-01"},
	} {
		rec := ts.do(http.MethodPost, "/api/admin/posts", p)
		if p["title"] == "" {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			continue
		}
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	posts := decode[[]domain.Post](t, ts.do(http.MethodGet, "/api/writing", nil))
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Slug)
	assert.Equal(t, "First post body.", posts[0].Excerpt)

	view := decode[PostView](t, ts.do(http.MethodGet, "/api/writing/new", nil))
	assert.Contains(t, view.HTML, "<em>post</em>")
	require.NotNil(t, view.Next)
	assert.Equal(t, "old", view.Next.Slug)

	view = decode[PostView](t, ts.do(http.MethodGet, "/api/writing/old", nil))
	assert.Nil(t, view.Next)

	rec := ts.do(http.MethodGet, "/api/writing/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGalleryEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.login()

	rec := ts.do(http.MethodPost, "/api/admin/gallery", map[string]any{"title": "No src"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/gallery", map[string]any{"src": "/gallery/a.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[struct {
		Success bool               `json:"success"`
		Item    domain.GalleryItem `json:"item"`
	}](t, rec)
	assert.True(t, created.Success)
	assert.Equal(t, "Uncategorized", created.Item.Category)
	assert.Equal(t, 800, created.Item.Width)

	rec = ts.do(http.MethodPut, "/api/admin/gallery", map[string]any{"id": created.Item.ID, "title": "Poster", "width": 1200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	items := decode[[]domain.GalleryItem](t, ts.do(http.MethodGet, "/api/gallery", nil))
	require.Len(t, items, 1)
	assert.Equal(t, "Poster", items[0].Title)
	assert.Equal(t, 1200, items[0].Width)
	assert.Equal(t, 800, items[0].Height)

	rec = ts.do(http.MethodPut, "/api/admin/gallery", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodPut, "/api/admin/gallery", map[string]any{"id": "missing", "title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/admin/gallery?id="+created.Item.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/admin/gallery?id="+created.Item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssistantEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.login()

	ts.ai.suggestion = assistant.Suggestion{Category: "Typography", Title: "Bold Letters"}
	rec := ts.do(http.MethodPost, "/api/admin/ai", map[string]string{"imageBase64": "data:image/png;base64,iVBORw0KGgo=", "mimeType": "image/png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"category":"Typography","title":"Bold Letters"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/ai", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.ai.formatted = "## Notes"
	rec = ts.do(http.MethodPost, "/api/admin/ai/format", map[string]string{"content": "notes"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"formatted":"## Notes"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/admin/ai/format", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.ai.err = assistant.ErrUpstream
	rec = ts.do(http.MethodPost, "/api/admin/ai/format", map[string]string{"content": "notes"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = ts.do(http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"projects":0,"featured":0,"posts":0,"gallery":0,"lastActivity":null}`, rec.Body.String())
}

func TestUploadEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.login()

	body := "--b\r\n" +
		"Content-Disposition: form-data; name=\"folder\"\r\n\r\ngallery\r\n" +
		"--b\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"shot.png\"\r\n" +
		"Content-Type: image/png\r\n\r\n" +
		"\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\r\n" +
		"--b--\r\n"

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.AddCookie(ts.cookie)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[upload.Result](t, rec)
	assert.True(t, strings.HasPrefix(res.Path, "/gallery/shot-"))

	served := ts.do(http.MethodGet, res.Path, nil)
	assert.Equal(t, http.StatusOK, served.Code)
}

func TestSitemapEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<loc>https://example.com/work</loc>")
	assert.Contains(t, rec.Body.String(), "<lastmod>2025-03-14</lastmod>")
}

func TestUnknownAPIRoute(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}
