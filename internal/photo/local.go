package photo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes photos under Dir and serves them from BaseURL.
// Used in development when Supabase is not configured.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func (s *LocalStore) Upload(ctx context.Context, path, _ string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := filepath.Join(s.Dir, filepath.FromSlash(path))
	if !strings.HasPrefix(full, filepath.Clean(s.Dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return "", err
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + path, nil
}
