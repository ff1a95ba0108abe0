package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Upload prefixes under the upload directory.
const (
	dirImages     = "images"
	dirThumbnails = "thumbnails"
	dirGenerated  = "generated"
	dirVocals     = "vocal_notes"
	dirMedia      = "journal_media"
	dirPhotos     = "profile_photos"
)

var uploadDirs = []string{dirImages, dirThumbnails, dirGenerated, dirVocals, dirMedia, dirPhotos}

const maxUploadMemory = 10 << 20

// uploadName returns a fresh "{dir}/{userID}_{unixnano}{ext}" path.
func uploadName(dir string, userID int64, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(dir, fmt.Sprintf("%d_%d%s", userID, time.Now().UnixNano(), strings.ToLower(ext)))
}

func (h *Handlers) diskPath(rel string) string {
	return filepath.Join(h.uploadDir, filepath.FromSlash(rel))
}

// saveFile writes data under rel, creating the prefix directory.
func (h *Handlers) saveFile(rel string, data []byte) error {
	p := h.diskPath(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

func (h *Handlers) readFile(rel string) ([]byte, error) {
	return os.ReadFile(h.diskPath(rel))
}

// removeFiles deletes stored uploads, ignoring ones already gone.
func (h *Handlers) removeFiles(rels ...string) {
	for _, rel := range rels {
		if rel == "" {
			continue
		}
		if err := os.Remove(h.diskPath(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("failed to remove upload", zap.String("file", rel), zap.Error(err))
		}
	}
}

// removeUserFiles deletes every upload owned by userID.
func (h *Handlers) removeUserFiles(userID int64) {
	for _, dir := range uploadDirs {
		matches, err := filepath.Glob(filepath.Join(h.uploadDir, dir, fmt.Sprintf("%d_*", userID)))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
				h.logger.Warn("failed to remove upload", zap.String("file", m), zap.Error(err))
			}
		}
	}
}

// formFile reads a multipart file field. ok is false when the field is
// absent.
func formFile(r *http.Request, field string) (data []byte, header *multipart.FileHeader, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	defer file.Close()
	data, err = io.ReadAll(file)
	if err != nil {
		return nil, nil, false, err
	}
	return data, header, true, nil
}

// parseMultipart caps the body at the configured upload size, then answers
// 413 for an oversized body and 400 when it is not a readable form.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return false
	}
	return true
}

// ServeMedia serves an upload to its owner. Stored names start with the
// owner's ID, so anything else answers 404.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+r.PathValue("path")), "/")
	dir, name := path.Split(rel)
	if dir == "" || !strings.HasPrefix(name, fmt.Sprintf("%d_", userID(r))) {
		http.NotFound(w, r)
		return
	}
	p := h.diskPath(rel)
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, p)
}
