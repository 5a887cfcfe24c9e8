// Package lock provides a simple advisory lock for a catalog file. Two
// processes operating on the same catalog concurrently is unsupported;
// this just keeps a second invocation from clobbering an in-progress
// save rather than implementing any real cross-process wait protocol —
// a plain O_EXCL sentinel file is enough.
package lock

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Handle represents a held lock; Release removes the sentinel file.
type Handle struct {
	path  string
	token string
}

// Acquire creates "<dbPath>.lock" with O_EXCL. If the sentinel already
// exists, Acquire fails immediately — callers should report this as a
// fatal condition rather than retry, since no cross-process wait
// protocol is specified.
func Acquire(dbPath string) (*Handle, error) {
	path := dbPath + ".lock"
	token := uuid.NewString()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("catalog %s is locked by another process (stale lock? remove %s if not)", dbPath, path)
		}
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(token); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write catalog lock token: %w", err)
	}
	return &Handle{path: path, token: token}, nil
}

// Release removes the sentinel file.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	return os.Remove(h.path)
}
