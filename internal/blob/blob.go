// Package blob writes exported reports to a filesystem directory or an
// S3-compatible bucket. Objects are create-only: an existing key is never
// overwritten.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gacha-lab/internal/config"
)

// Sink drivers.
const (
	DriverFS = config.DriverFS
	DriverS3 = config.DriverS3
)

var (
	// ErrExists is returned when the key is already taken.
	ErrExists = errors.New("blob already exists")

	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Sink stores exported objects.
type Sink interface {
	// Driver names the backend.
	Driver() string

	// Put stores data under key and returns where it was written.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Open builds the sink selected by the export config.
// The none driver returns a nil Sink and no error.
func Open(ctx context.Context, cfg config.ExportConfig) (Sink, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case DriverFS:
		sink, err := NewFSSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case DriverS3:
		sink, err := NewS3Sink(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown export driver %q", cfg.Driver)
	}
}

// cleanKey normalizes key to a relative slash path that stays inside the sink root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: absolute key %q", ErrInvalidKey, key)
	}
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: key %q escapes the root", ErrInvalidKey, key)
	}
	return clean, nil
}
