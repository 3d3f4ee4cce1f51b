package transfer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPDialer speaks explicit FTPS to the NAS. Certificate validation is
// skipped: the appliance sits on a private network with a self-signed cert.
type FTPDialer struct {
	Host     string
	User     string
	Password string
	Timeout  time.Duration
}

func (d FTPDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 100 * time.Minute
	}
	host := d.Host
	if !strings.Contains(host, ":") {
		host += ":21"
	}

	conn, err := ftp.Dial(host,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
		ftp.DialWithExplicitTLS(&tls.Config{InsecureSkipVerify: true}), // #nosec G402
	)
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", d.Host, err)
	}
	if err := conn.Login(d.User, d.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return &ftpConn{conn: conn}, nil
}

type ftpConn struct {
	conn *ftp.ServerConn
}

func (c *ftpConn) EnsureDir(dir string) error {
	dir = path.Clean(dir)
	if dir == "/" || dir == "." || dir == "" {
		return nil
	}

	segments := strings.Split(strings.Trim(dir, "/"), "/")
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, segment := range segments {
		current = path.Join(current, segment)
		// MakeDir fails when the directory already exists; a successful
		// ChangeDir into it means it does.
		if err := c.conn.MakeDir(current); err != nil {
			if chErr := c.conn.ChangeDir(current); chErr != nil {
				return fmt.Errorf("ftp mkdir %s: %w", current, err)
			}
		}
	}
	if err := c.conn.ChangeDir("/"); err != nil {
		return fmt.Errorf("ftp cwd reset: %w", err)
	}
	return nil
}

func (c *ftpConn) Upload(remotePath string, r io.Reader) error {
	if err := c.conn.Stor(remotePath, r); err != nil {
		return fmt.Errorf("ftp store %s: %w", remotePath, err)
	}
	return nil
}

func (c *ftpConn) Download(remotePath string, w io.Writer) error {
	resp, err := c.conn.Retr(remotePath)
	if err != nil {
		return fmt.Errorf("ftp retrieve %s: %w", remotePath, err)
	}
	defer func() { _ = resp.Close() }()
	if _, err := io.Copy(w, resp); err != nil {
		return fmt.Errorf("ftp download %s: %w", remotePath, err)
	}
	return nil
}

func (c *ftpConn) Quit() error {
	return c.conn.Quit()
}
