// Package uploads stores user-uploaded files and reports the URL they are served from.
package uploads

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL path under which disk uploads are served
const PublicPrefix = "/upload/"

// ErrInvalidName is returned when a filename reduces to nothing usable
var ErrInvalidName = errors.New("invalid file name")

// Storage persists an uploaded file under name and returns its URL.
// Saving twice under the same name overwrites the earlier file.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// CleanName keeps only the base name of a client-supplied filename
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." || name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
