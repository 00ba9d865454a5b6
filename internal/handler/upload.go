package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/storage"
)

// ObjectStore is the subset of storage.Store used for uploads.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader) (string, error)
	PublicURL(bucket, key string) string
	ImportURL(ctx context.Context, bucket, folder, name, rawURL string) (string, error)
}

// UploadHandler stores images in storage buckets.
type UploadHandler struct {
	Store ObjectStore
	now   func() time.Time
}

func NewUploadHandler(s ObjectStore) *UploadHandler {
	return &UploadHandler{Store: s, now: time.Now}
}

func storageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidBucket), errors.Is(err, storage.ErrInvalidKey):
		return badRequest(c, err.Error())
	case errors.Is(err, storage.ErrNotImage):
		return errorJSON(c, http.StatusUnsupportedMediaType, "not_image", "only images can be uploaded")
	case errors.Is(err, storage.ErrTooLarge):
		return errorJSON(c, http.StatusRequestEntityTooLarge, "too_large", "file is too large")
	}
	return fail(c, err)
}

// Upload stores the multipart "file" field in the bucket and returns its
// public URL.  An optional "folder" form value prefixes the object key.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read file")
	}
	defer src.Close()

	ext := strings.TrimPrefix(path.Ext(fh.Filename), ".")
	name := strings.TrimSuffix(fh.Filename, path.Ext(fh.Filename))
	key := storage.ObjectName(name, strings.ToLower(ext), h.now())
	if folder := strings.Trim(c.FormValue("folder"), "/"); folder != "" {
		key = path.Join(folder, key)
	}

	bucket := c.Param("bucket")
	key, err = h.Store.Put(c.Request().Context(), bucket, key, src)
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": h.Store.PublicURL(bucket, key), "key": key})
}

type importURLReq struct {
	URL    string `json:"url" validate:"required,url"`
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

// ImportURL copies a remote image into the bucket.  When the download or
// the store fails the remote URL is returned as is with fallback set, so
// the caller can keep using it.
func (h *UploadHandler) ImportURL(c echo.Context) error {
	var req importURLReq
	if err := bind(c, &req); err != nil {
		return err
	}
	name := req.Name
	if name == "" {
		name = "image"
	}
	folder := strings.Trim(req.Folder, "/")
	if folder == "" {
		folder = "imports"
	}
	u, err := h.Store.ImportURL(c.Request().Context(), c.Param("bucket"), folder, name, req.URL)
	if errors.Is(err, storage.ErrInvalidBucket) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		c.Logger().Warnf("image import failed, keeping remote url: %v", err)
		return c.JSON(http.StatusOK, echo.Map{"url": req.URL, "fallback": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": u, "fallback": false})
}
