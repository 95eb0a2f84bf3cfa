// Package blobstore stores rendered artifacts and hands back the URL they can
// be fetched from. It ships an S3 backend and an in-memory backend for
// development and tests; the latter is served by BlobHandler.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrInvalidPath  = errors.New("invalid blob path")
	ErrEmptyContent = errors.New("blob content is empty")
)

// MaxFileSize is the maximum allowed blob size in bytes (100 MB).
const MaxFileSize = 100 * 1024 * 1024

// Store uploads a blob under path and returns the URL it is reachable at.
// Implementations do not retry; a failed upload is reported to the caller.
type Store interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Object describes a stored blob.
type Object struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// CleanPath normalizes a blob path and rejects absolute paths, traversal and
// empty names.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func checkUpload(p string, data []byte) (string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}
	return cleaned, nil
}

type storedBlob struct {
	object  Object
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store. URLs point at baseURL, where
// BlobHandler is expected to be mounted.
type MemoryStore struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string]*storedBlob),
	}
}

// Upload stores data under path, replacing any previous blob there.
func (s *MemoryStore) Upload(ctx context.Context, p, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := checkUpload(p, data)
	if err != nil {
		return "", err
	}

	h := sha256.Sum256(data)
	content := make([]byte, len(data))
	copy(content, data)

	s.mu.Lock()
	s.blobs[cleaned] = &storedBlob{
		object: Object{
			Path:        cleaned,
			ContentType: contentType,
			Size:        int64(len(data)),
			Hash:        fmt.Sprintf("%x", h),
			CreatedAt:   time.Now().UTC(),
		},
		content: content,
	}
	s.mu.Unlock()

	return s.baseURL + "/" + cleaned, nil
}

// Download returns the blob content, which callers must not modify, and its metadata.
func (s *MemoryStore) Download(_ context.Context, p string) ([]byte, *Object, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	blob, ok := s.blobs[cleaned]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	obj := blob.object
	return blob.content, &obj, nil
}

// size reports how many blobs are stored.
func (s *MemoryStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// BlobHandler serves MemoryStore content over HTTP.
type BlobHandler struct {
	store *MemoryStore
}

func NewBlobHandler(store *MemoryStore) *BlobHandler {
	return &BlobHandler{store: store}
}

// RegisterRoutes mounts GET {prefix}/* on e.
func (h *BlobHandler) RegisterRoutes(e *echo.Echo, prefix string) {
	e.GET(strings.TrimRight(prefix, "/")+"/*", h.handleDownload)
}

func (h *BlobHandler) handleDownload(c echo.Context) error {
	data, obj, err := h.store.Download(c.Request().Context(), c.Param("*"))
	if err != nil {
		switch {
		case errors.Is(err, ErrBlobNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidPath):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, path.Base(obj.Path)))
	c.Response().Header().Set("ETag", `"`+obj.Hash+`"`)
	return c.Stream(http.StatusOK, obj.ContentType, bytes.NewReader(data))
}
