// Package artifact persists decoded compute outputs. Artifacts are written
// once under a per-call directory, so concurrent calls can never collide and
// a reference stays valid for out-of-band retrieval. The store never deletes;
// retention is an external concern.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"ghbridge/internal/domain"
)

// threeDMMagic is the openNURBS file header.
var threeDMMagic = []byte("3D Geometry File Format")

// Store writes artifacts beneath a root directory.
type Store struct {
	root string
}

// NewStore ensures root exists and returns a store over it.
func NewStore(root string) (*Store, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("artifact store init: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Save writes data to <root>/<callID>/<name>, write-once. A second write to
// the same path fails rather than overwriting, which keeps artifacts
// immutable once referenced.
func (s *Store) Save(callID, name string, data []byte) (*domain.ArtifactRef, error) {
	if callID == "" || name == "" {
		return nil, domain.NewToolError(domain.KindArtifactPersist, "artifact requires a call identifier and a name")
	}
	dir := filepath.Join(s.root, filepath.Base(callID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.WrapToolError(domain.KindArtifactPersist, err, "artifact directory for call %s", callID)
	}

	path := filepath.Join(dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, domain.WrapToolError(domain.KindArtifactPersist, err, "artifact %s already exists or is unwritable", path)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return nil, domain.WrapToolError(domain.KindArtifactPersist, err, "artifact write %s", path)
	}

	return &domain.ArtifactRef{
		ID:        filepath.Base(callID) + "/" + filepath.Base(name),
		Path:      path,
		MediaType: sniffMediaType(data),
		Size:      int64(len(data)),
	}, nil
}

// sniffMediaType identifies the payload. filetype covers common binary
// formats; the 3dm header and JSON are matched by hand because filetype does
// not know them.
func sniffMediaType(data []byte) string {
	if bytes.HasPrefix(data, threeDMMagic) {
		return "model/3dm"
	}
	if t, err := filetype.Match(data); err == nil && t != filetype.Unknown {
		return t.MIME.Value
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "application/json"
	}
	return "application/octet-stream"
}
