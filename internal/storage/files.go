// Package storage persists uploaded attachments on the local filesystem and
// hands back public URLs for them. It is the "file storage collaborator" in
// front of the analysis flow: validate the type, write the bytes, return a
// URL the HTTP layer serves under /files.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an accepted attachment.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

// ErrUnsupportedType rejects attachments outside the allow-list. Handlers
// surface it as a 415 naming the accepted types.
var ErrUnsupportedType = errors.New("unsupported attachment type: expected a jpeg, png, or webp image, or a pdf document")

// kindByExt is the attachment allow-list, keyed by lowercase extension.
var kindByExt = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
	".pdf":  KindPDF,
}

// KindForFilename resolves the attachment kind from a filename extension, or
// ErrUnsupportedType when the extension is not allowed.
func KindForFilename(name string) (Kind, error) {
	k, ok := kindByExt[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return k, nil
}

// FileStore writes attachments under Root and derives public URLs from
// PublicBase (e.g. "http://localhost:8080/files").
type FileStore struct {
	Root       string
	PublicBase string
}

// NewFileStore ensures the root directory exists and returns the store.
func NewFileStore(root, publicBase string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{Root: root, PublicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Save validates the type, writes data under a user-scoped key, and returns
// the public URL plus the resolved kind.
//
// Keys follow {userID}/{unixmillis}-{uuid}{ext}; the uuid guards against
// same-millisecond collisions and the per-user prefix keeps listings cheap.
func (s *FileStore) Save(userID, filename string, data []byte) (url string, kind Kind, err error) {
	kind, err = KindForFilename(filename)
	if err != nil {
		return "", "", err
	}

	key := filepath.Join(
		sanitizeSegment(userID),
		fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(filename))),
	)
	dst := filepath.Join(s.Root, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", "", fmt.Errorf("create user dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o640); err != nil {
		return "", "", fmt.Errorf("write attachment: %w", err)
	}

	return s.PublicBase + "/" + filepath.ToSlash(key), kind, nil
}

// sanitizeSegment keeps user identifiers path-safe: anything outside
// [A-Za-z0-9_-] becomes '_', and an empty or all-underscore result falls back
// to "anonymous". Dots are rewritten too so traversal sequences cannot form.
func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, "_-") == "" {
		return "anonymous"
	}
	return out
}
