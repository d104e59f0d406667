package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes blobs under a directory and serves them from a static file
// route. Meant for development; production uses the S3 store.
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: baseURL}
}

func (l *Local) Store(_ context.Context, name, _ string, body io.Reader) (string, error) {
	path := filepath.Join(l.Dir, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("storage: write: %w", err)
	}

	return strings.TrimRight(l.BaseURL, "/") + "/" + name, nil
}

func (l *Local) Delete(_ context.Context, url string) error {
	base := strings.TrimRight(l.BaseURL, "/")
	if !strings.HasPrefix(url, base+"/") {
		return nil
	}

	name := strings.TrimPrefix(url, base+"/")
	path := filepath.Join(l.Dir, filepath.FromSlash(name))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove: %w", err)
	}

	return nil
}
