package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/logger"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".csv": true, ".zip": true,
}

type MediaController struct {
	*Deps
	Root     string // MEDIA_ROOT
	URL      string // MEDIA_URL
	MaxBytes int64
}

// Upload stores a multipart "file" under <root>/<yyyy>/<mm>/<uuid><ext> and
// returns its public URL.
func (m *MediaController) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, m.MaxBytes+(1<<20))

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(c, apperr.With(apperr.ErrTooLarge, "File exceeds the %d MB upload limit.", m.MaxBytes>>20))
			return
		}
		respondError(c, apperr.Field("file", "No file was submitted."))
		return
	}
	if fh.Size > m.MaxBytes {
		respondError(c, apperr.With(apperr.ErrTooLarge, "File exceeds the %d MB upload limit.", m.MaxBytes>>20))
		return
	}
	if fh.Size == 0 {
		respondError(c, apperr.Field("file", "The submitted file is empty."))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	kind := "document"
	switch {
	case imageExts[ext]:
		kind = "image"
	case documentExts[ext]:
	default:
		respondError(c, apperr.Field("file", fmt.Sprintf("File extension %q is not allowed.", ext)))
		return
	}

	src, err := fh.Open()
	if err != nil {
		respondError(c, apperr.Wrap(apperr.ErrBadRequest, err, "could not read upload"))
		return
	}
	defer src.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(src, head)
	contentType := http.DetectContentType(head[:n])
	if kind == "image" && !strings.HasPrefix(contentType, "image/") {
		respondError(c, apperr.Field("file", "Upload a valid image. The file you uploaded was either not an image or a corrupted image."))
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInternal, err, ""))
		return
	}

	now := m.now()
	rel := path.Join(now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	dst := filepath.Join(m.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInternal, err, ""))
		return
	}
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInternal, err, ""))
		return
	}

	logger.Info(ctx, "media uploaded", zap.String("path", rel), zap.Int64("size", fh.Size))
	c.JSON(http.StatusCreated, gin.H{
		"path":         rel,
		"url":          strings.TrimRight(m.URL, "/") + "/" + rel,
		"name":         filepath.Base(fh.Filename),
		"size":         fh.Size,
		"kind":         kind,
		"content_type": contentType,
	})
}
