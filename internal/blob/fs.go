package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FSSink writes objects as files under a root directory.
type FSSink struct {
	root string
}

var _ Sink = (*FSSink)(nil)

// NewFSSink returns a sink rooted at dir, creating it if needed.
func NewFSSink(dir string) (*FSSink, error) {
	if dir == "" {
		return nil, errors.New("fs sink: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs sink: %w", err)
	}
	return &FSSink{root: dir}, nil
}

// Driver implements Sink.
func (s *FSSink) Driver() string { return DriverFS }

// Put implements Sink. The returned location is the file path.
func (s *FSSink) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	p := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("fs sink: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, k)
		}
		return "", fmt.Errorf("fs sink: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("fs sink: write %s: %w", k, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("fs sink: close %s: %w", k, err)
	}
	return p, nil
}
