package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type stubConn struct {
	files map[string][]byte
}

func (c *stubConn) EnsureDir(path string) error { return nil }

func (c *stubConn) Upload(remotePath string, r io.Reader) error {
	return errors.New("not used")
}

func (c *stubConn) Download(remotePath string, w io.Writer) error {
	data, ok := c.files[remotePath]
	if !ok {
		return errors.New("no such remote file: " + remotePath)
	}
	// Dribble the bytes out to exercise the pipe under partial reads.
	for len(data) > 0 {
		n := 3
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (c *stubConn) Quit() error { return nil }

func TestStreamZipPreservesEntriesAndOrder(t *testing.T) {
	conn := &stubConn{files: map[string][]byte{
		"/neovar/s/s/a_R/a_R_filtered.vcf.gz": []byte("vcf-a-contents"),
		"/neovar/s/s/b_R/b_R_filtered.vcf.gz": []byte("vcf-b"),
		"/neovar/s/s/c_R/c_R_filtered.vcf.gz": bytes.Repeat([]byte("x"), 10_000),
	}}
	entries := []Entry{
		{RemotePath: "/neovar/s/s/a_R/a_R_filtered.vcf.gz", Name: "a_R_filtered.vcf.gz"},
		{RemotePath: "/neovar/s/s/b_R/b_R_filtered.vcf.gz", Name: "b_R_filtered.vcf.gz"},
		{RemotePath: "/neovar/s/s/c_R/c_R_filtered.vcf.gz", Name: "c_R_filtered.vcf.gz"},
	}

	var buf bytes.Buffer
	if err := StreamZip(context.Background(), conn, entries, &buf); err != nil {
		t.Fatalf("stream zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive back: %v", err)
	}
	if len(zr.File) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(zr.File))
	}
	for i, entry := range entries {
		f := zr.File[i]
		if f.Name != entry.Name {
			t.Fatalf("entry %d named %q, want %q", i, f.Name, entry.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %q: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read entry %q: %v", f.Name, err)
		}
		if !bytes.Equal(data, conn.files[entry.RemotePath]) {
			t.Fatalf("entry %q round-tripped wrong content (%d bytes)", f.Name, len(data))
		}
	}
}

func TestStreamZipFailsWholeArchiveOnMissingFile(t *testing.T) {
	conn := &stubConn{files: map[string][]byte{
		"/neovar/s/s/a_R/a_R_filtered.vcf.gz": []byte("vcf-a"),
	}}
	entries := []Entry{
		{RemotePath: "/neovar/s/s/a_R/a_R_filtered.vcf.gz", Name: "a_R_filtered.vcf.gz"},
		{RemotePath: "/neovar/s/s/missing.vcf.gz", Name: "missing.vcf.gz"},
	}

	var buf bytes.Buffer
	if err := StreamZip(context.Background(), conn, entries, &buf); err == nil {
		t.Fatalf("expected an error for the missing entry")
	}
}

func TestStreamZipRejectsEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := StreamZip(context.Background(), &stubConn{}, nil, &buf); err == nil {
		t.Fatalf("expected an error for an empty entry list")
	}
}

func TestStreamZipDeduplicatesEntryNames(t *testing.T) {
	conn := &stubConn{files: map[string][]byte{
		"/neovar/a/out.vcf.gz": []byte("first"),
		"/neovar/b/out.vcf.gz": []byte("second"),
	}}
	entries := []Entry{
		{RemotePath: "/neovar/a/out.vcf.gz"},
		{RemotePath: "/neovar/b/out.vcf.gz"},
	}

	var buf bytes.Buffer
	if err := StreamZip(context.Background(), conn, entries, &buf); err != nil {
		t.Fatalf("stream zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive back: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	if zr.File[0].Name == zr.File[1].Name {
		t.Fatalf("expected deduplicated names, both are %q", zr.File[0].Name)
	}
}
