// Package upload stores images posted from the admin editor under the
// public directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/folio/internal/content"
)

const (
	// MaxSize is the largest accepted file.
	MaxSize = 10 << 20
	// DefaultFolder receives files posted without a folder.
	DefaultFolder = "uploads"
)

// Errors returned for rejected files. Both wrap content.ErrInvalidInput.
var (
	ErrNoFile      = fmt.Errorf("%w: no file provided", content.ErrInvalidInput)
	ErrInvalidType = fmt.Errorf("%w: invalid file type", content.ErrInvalidInput)
	ErrTooLarge    = fmt.Errorf("%w: file too large (max 10MB)", content.ErrInvalidInput)
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/avif": "avif",
	"image/gif":  "gif",
}

// Result describes a stored file.
type Result struct {
	Success  bool   `json:"success"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Uploader writes files below a public root.
type Uploader struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// New returns an Uploader rooted at publicDir.
func New(publicDir string, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{root: publicDir, logger: logger, now: time.Now}
}

// FromRequest reads the "file" and "folder" fields of a multipart form.
func (u *Uploader) FromRequest(w http.ResponseWriter, r *http.Request) (Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return Result{}, ErrTooLarge
		}
		return Result{}, fmt.Errorf("%w: parse form: %w", content.ErrInvalidInput, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return Result{}, ErrNoFile
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: read file: %w", content.ErrInvalidInput, err)
	}
	defer file.Close()

	return u.Save(r.FormValue("folder"), header.Filename, partType(header), file)
}

func partType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

// Save validates and writes one file. contentType may be empty, in which
// case it is sniffed from the data.
func (u *Uploader) Save(folder, name, contentType string, r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read upload: %w", content.ErrIO, err)
	}
	if len(data) == 0 {
		return Result{}, ErrNoFile
	}
	if len(data) > MaxSize {
		return Result{}, ErrTooLarge
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	defaultExt, ok := allowedTypes[contentType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidType, contentType)
	}

	folder = CleanFolder(folder)
	filename := u.filename(name, defaultExt)

	dir := filepath.Join(u.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: create %s: %w", content.ErrIO, dir, err)
	}
	if err := content.WriteFile(filepath.Join(dir, filename), data); err != nil {
		return Result{}, err
	}

	publicPath := path.Join("/", folder, filename)
	u.logger.Info("file uploaded", zap.String("path", publicPath), zap.Int("bytes", len(data)))
	return Result{Success: true, Path: publicPath, Filename: filename}, nil
}

// filename builds "<safe-name>-<unix millis>.<ext>".
func (u *Uploader) filename(name, defaultExt string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
	stem := content.Slugify(strings.TrimSuffix(base, path.Ext(base)))

	if ext == "" || !validExt(ext) {
		ext = defaultExt
	}
	if stem == "" {
		stem = "file"
	}
	return stem + "-" + strconv.FormatInt(u.now().UnixMilli(), 10) + "." + ext
}

var knownExts = []string{"jpg", "jpeg", "png", "webp", "avif", "gif"}

func validExt(ext string) bool {
	return slices.Contains(knownExts, ext)
}

// CleanFolder reduces folder to slash-separated slug segments. An empty
// result falls back to DefaultFolder.
func CleanFolder(folder string) string {
	var parts []string
	for _, seg := range strings.Split(strings.ReplaceAll(folder, "\\", "/"), "/") {
		if s := content.Slugify(seg); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return DefaultFolder
	}
	return strings.Join(parts, "/")
}
