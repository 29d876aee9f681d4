package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectStore is the read side of an object store; sqlask only ever pulls
// source files from it.
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// Location is a parsed source reference. Remote locations use the
// s3://bucket/key form; anything else is a local filesystem path.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

func (l Location) Remote() bool {
	return l.Bucket != ""
}

func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("location is required")
	}
	if !strings.HasPrefix(strings.ToLower(raw), "s3://") {
		return Location{Path: raw}, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return Location{}, fmt.Errorf("location %q has no bucket", raw)
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if key == "" {
		return Location{}, fmt.Errorf("location %q has no object key", raw)
	}
	return Location{Bucket: parsed.Host, Key: key}, nil
}
