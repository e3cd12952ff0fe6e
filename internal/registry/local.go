package registry

import (
	"path/filepath"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// Local is a registry over a folder already on disk. Its persisted index
// lives in the folder itself.
type Local struct {
	*core
}

// NewLocal returns the registry for the folder at path.
func NewLocal(path string, opts Options) (*Local, error) {
	if path == "" {
		return nil, amerrors.ValidationError("registry folder is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, amerrors.IOError("failed to resolve registry folder", err).WithDetail("path", path)
	}
	return &Local{core: newCore(abs, abs, opts)}, nil
}

// Folder returns the folder holding the documents.
func (l *Local) Folder() string {
	return l.folder
}
