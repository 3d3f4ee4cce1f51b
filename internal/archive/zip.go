package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"neovar/internal/transfer"
)

// Entry names one remote file and the name it takes inside the archive.
type Entry struct {
	RemotePath string
	Name       string
}

// StreamZip writes a zip of the given remote files to w, downloading each
// entry over conn as it is compressed. The archive is streamed, never
// buffered whole; any entry failure aborts the archive, because a partially
// written zip cannot be repaired mid-stream.
func StreamZip(ctx context.Context, conn transfer.Conn, entries []Entry, w io.Writer) error {
	if len(entries) == 0 {
		return errors.New("no files to archive")
	}

	zw := zip.NewWriter(w)
	usedNames := make(map[string]struct{}, len(entries))
	buf := make([]byte, 256*1024)

	for _, entry := range entries {
		if err := streamZipEntry(ctx, conn, entry, zw, usedNames, buf); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func streamZipEntry(ctx context.Context, conn transfer.Conn, entry Entry, zw *zip.Writer, usedNames map[string]struct{}, buf []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	name := entry.Name
	if name == "" {
		name = path.Base(entry.RemotePath)
	}
	name, err := sanitizeZipEntryName(name)
	if err != nil {
		return fmt.Errorf("unsafe zip entry name for %q: %v", entry.RemotePath, err)
	}
	name = uniqueZipEntryName(usedNames, name)

	ew, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(conn.Download(entry.RemotePath, pw))
	}()

	_, copyErr := copyWithContext(ctx, ew, pr, buf)
	_ = pr.CloseWithError(copyErr)
	return copyErr
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, 256*1024)
	}
	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			if werr != nil {
				return total, werr
			}
			if wn != n {
				return total, io.ErrShortWrite
			}
			total += int64(n)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

func sanitizeZipEntryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("empty")
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if strings.ContainsRune(name, 0) {
		return "", errors.New("null")
	}

	clean := path.Clean(name)
	if clean == "." || clean == ".." || clean == "" {
		return "", errors.New("invalid")
	}
	if strings.HasPrefix(clean, "../") {
		return "", errors.New("traversal")
	}

	parts := strings.Split(clean, "/")
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return "", errors.New("invalid segment")
		}
	}
	return clean, nil
}

func uniqueZipEntryName(used map[string]struct{}, name string) string {
	if _, ok := used[name]; !ok {
		used[name] = struct{}{}
		return name
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; i < 10_000; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, ok := used[candidate]; ok {
			continue
		}
		used[candidate] = struct{}{}
		return candidate
	}

	used[name] = struct{}{}
	return name
}
