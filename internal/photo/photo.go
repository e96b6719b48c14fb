// Package photo validates profile pictures and stores them in object storage.
package photo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// MaxSize is the largest accepted upload.
	MaxSize = 10 << 20
	// MaxPerUser caps the photo list of a profile.
	MaxPerUser = 6
)

var (
	ErrEmpty    = errors.New("photo is empty")
	ErrTooLarge = fmt.Errorf("photo exceeds %d MiB", MaxSize>>20)
	ErrNotImage = errors.New("only image files are allowed")
)

// Store saves an object and returns its public URL.
type Store interface {
	Upload(ctx context.Context, path, contentType string, body []byte) (string, error)
}

// Sniff checks that body is an image within MaxSize and returns its MIME
// type and file extension. The declared content type is ignored.
func Sniff(body []byte) (contentType, ext string, err error) {
	switch {
	case len(body) == 0:
		return "", "", ErrEmpty
	case len(body) > MaxSize:
		return "", "", ErrTooLarge
	}
	mt := mimetype.Detect(body)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", ErrNotImage
	}
	return mt.String(), mt.Extension(), nil
}

// ObjectPath names a new object for userID: <user id>/<random><ext>.
func ObjectPath(userID, ext string) string {
	return fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)
}
