package photo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nedpals/supabase-go"
)

// SupabaseStore keeps photos in a public Supabase Storage bucket.
type SupabaseStore struct {
	client  *supabase.Client
	baseURL string
	bucket  string
}

func NewSupabaseStore(url, key, bucket string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase URL or Key is empty")
	}
	return &SupabaseStore{
		client:  supabase.CreateClient(url, key),
		baseURL: strings.TrimRight(url, "/"),
		bucket:  bucket,
	}, nil
}

// Upload puts body at path in the bucket. The supabase client panics on
// transport errors; they are returned as errors instead.
func (s *SupabaseStore) Upload(ctx context.Context, path, contentType string, body []byte) (url string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supabase upload %s: %v", path, r)
		}
	}()

	opts := &supabase.FileUploadOptions{ContentType: contentType, MimeType: contentType}
	resp := s.client.Storage.From(s.bucket).Upload(path, bytes.NewReader(body), opts)
	if resp.Key == "" && resp.Message != "" {
		return "", fmt.Errorf("supabase upload %s: %s", path, resp.Message)
	}
	return s.PublicURL(path), nil
}

// PublicURL is the address of an object in a public bucket.
func (s *SupabaseStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}
