package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festplanner/internal/config"
)

// smallest valid 1x1 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newStore(t *testing.T, max int64) *Store {
	t.Helper()
	s, err := New(context.Background(), config.StorageConfig{Dir: t.TempDir(), PublicBase: "/storage/", MaxBytes: max})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestPut(t *testing.T) {
	s := newStore(t, 1024)
	ctx := context.Background()

	key, err := s.Put(ctx, BucketImages, "bands/logo", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "bands/logo.png", key)
	assert.Equal(t, "/storage/fest-images/bands/logo.png", s.PublicURL(BucketImages, key))

	stored, err := os.ReadFile(filepath.Join(s.Dir(), BucketImages, "bands", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	attrs, err := s.bucket.Attributes(ctx, BucketImages+"/bands/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", attrs.ContentType)
}

func TestNewFromBucketURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	s, err := New(context.Background(), config.StorageConfig{BucketURL: "file://" + dir, PublicBase: "/img"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, dir, s.Dir())

	key, err := s.Put(context.Background(), BucketImages, "a/b", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "a/b.png", key)
	got, err := s.bucket.ReadAll(context.Background(), BucketImages+"/a/b.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	_, err = New(context.Background(), config.StorageConfig{})
	assert.Error(t, err)
}

func TestPutRejects(t *testing.T) {
	s := newStore(t, 32)
	ctx := context.Background()

	_, err := s.Put(ctx, "Bad Bucket", "x.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrInvalidBucket)

	_, err = s.Put(ctx, BucketImages, "../escape.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = s.Put(ctx, BucketImages, "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = s.Put(ctx, BucketImages, "big.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestImportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	s := newStore(t, 1024)
	ctx := context.Background()

	got, err := s.ImportURL(ctx, BucketImages, FolderBands, "Guns N' Roses", srv.URL+"/img/photo.PNG?size=large")
	require.NoError(t, err)
	assert.Equal(t, "/storage/fest-images/bands/guns-n--roses-1700000000000.png", got)

	_, err = s.ImportURL(ctx, BucketImages, FolderBands, "x", srv.URL+"/missing.jpg")
	assert.ErrorContains(t, err, "failed to fetch image")

	_, err = s.ImportURL(ctx, BucketImages, FolderBands, "x", "ftp://example.com/a.png")
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	at := time.UnixMilli(42)
	assert.Equal(t, "ac-dc-42.jpg", ObjectName("AC/DC", "jpg", at))
	assert.Equal(t, "sigur-r-s-42", ObjectName("Sigur Rós", "", at))
}

func TestExtFromURL(t *testing.T) {
	u, _ := url.Parse("https://cdn.example.com/a/b/photo.JPEG?x=1")
	assert.Equal(t, "jpeg", ExtFromURL(u))
	u, _ = url.Parse("https://cdn.example.com/a/b/photo")
	assert.Equal(t, "", ExtFromURL(u))
}
