package transfer

import (
	"context"
	"io"
)

// Dialer opens one connection per logical operation. Connections are never
// pooled; callers must Quit on every exit path.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type Conn interface {
	// EnsureDir creates path and any missing parents on the remote side.
	EnsureDir(path string) error
	// Upload streams r to remotePath, replacing any existing file.
	Upload(remotePath string, r io.Reader) error
	// Download streams remotePath into w.
	Download(remotePath string, w io.Writer) error
	Quit() error
}
