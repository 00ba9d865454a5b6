// Package storage keeps uploaded and re-hosted images in a blob bucket and
// builds their public URLs.  Each application bucket is a key prefix.  With
// the default file bucket the HTTP server serves objects under the
// configured public base path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/iliyamo/festplanner/internal/config"
)

// Buckets used by the application.
const (
	BucketImages = "fest-images"
	FolderBands  = "bands"
)

var (
	ErrInvalidBucket = errors.New("invalid bucket")
	ErrInvalidKey    = errors.New("invalid object key")
	ErrNotImage      = errors.New("content is not an image")
	ErrTooLarge      = errors.New("object too large")
)

var (
	bucketRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)
	slugRe   = regexp.MustCompile(`[^a-z0-9]`)
)

// Store is an image store on top of a blob bucket.
type Store struct {
	bucket     *blob.Bucket
	dir        string
	publicBase string
	maxBytes   int64
	client     *http.Client
	now        func() time.Time
}

// New opens the bucket named by cfg.BucketURL, or a file bucket rooted at
// cfg.Dir when no URL is set.  Local directories are created if needed.
func New(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	bucket, dir, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Store{
		bucket:     bucket,
		dir:        dir,
		publicBase: strings.TrimSuffix(cfg.PublicBase, "/"),
		maxBytes:   maxBytes,
		client:     &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}, nil
}

func open(ctx context.Context, cfg config.StorageConfig) (*blob.Bucket, string, error) {
	if cfg.BucketURL == "" {
		if cfg.Dir == "" {
			return nil, "", errors.New("empty directory")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, "", err
		}
		b, err := fileblob.OpenBucket(cfg.Dir, nil)
		return b, cfg.Dir, err
	}
	u, err := url.Parse(cfg.BucketURL)
	if err != nil {
		return nil, "", err
	}
	var dir string
	if u.Scheme == fileblob.Scheme {
		dir = u.Path
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", err
		}
	}
	b, err := blob.OpenBucket(ctx, cfg.BucketURL)
	return b, dir, err
}

// Close releases the bucket.
func (s *Store) Close() error { return s.bucket.Close() }

// Dir returns the local root of a file bucket, or "" when objects live
// elsewhere and are not served by this process.
func (s *Store) Dir() string { return s.dir }

// PublicBase returns the URL prefix objects are served under.
func (s *Store) PublicBase() string { return s.publicBase }

// Put stores the content of r under bucket/key and returns the key.  The
// content must sniff as an image no larger than the configured limit.  A
// key without an extension gets the one matching the detected type.
func (s *Store) Put(ctx context.Context, bucket, key string, r io.Reader) (string, error) {
	if !bucketRe.MatchString(bucket) {
		return "", ErrInvalidBucket
	}
	key = path.Clean(strings.TrimPrefix(key, "/"))
	if key == "." || strings.HasPrefix(key, "..") {
		return "", ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	if path.Ext(key) == "" {
		key += mt.Extension()
	}

	opts := &blob.WriterOptions{ContentType: mt.String()}
	if err := s.bucket.WriteAll(ctx, bucket+"/"+key, data, opts); err != nil {
		return "", err
	}
	return key, nil
}

// PublicURL returns the URL an object is served at.
func (s *Store) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// ImportURL downloads rawURL and stores it as folder/<slug>-<millis>.<ext>
// in bucket, returning the public URL.
func (s *Store) ImportURL(ctx context.Context, bucket, folder, name, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid image url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch image: %s", resp.Status)
	}

	key := path.Join(folder, ObjectName(name, ExtFromURL(u), s.now()))
	key, err = s.Put(ctx, bucket, key, resp.Body)
	if err != nil {
		return "", err
	}
	return s.PublicURL(bucket, key), nil
}

// ObjectName builds a collision-resistant file name from a display name:
// lower-cased, every character outside [a-z0-9] replaced by '-', then the
// Unix milliseconds of at and the extension.
func ObjectName(name, ext string, at time.Time) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(name), "-")
	n := fmt.Sprintf("%s-%d", slug, at.UnixMilli())
	if ext != "" {
		n += "." + ext
	}
	return n
}

// ExtFromURL returns the extension of the URL path without the dot, or ""
// when there is none.
func ExtFromURL(u *url.URL) string {
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if len(ext) > 5 {
		return ""
	}
	return strings.ToLower(ext)
}
