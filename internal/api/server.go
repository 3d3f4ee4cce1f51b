package api

import (
	"io"

	"neovar/internal/config"
	"neovar/internal/mailer"
	"neovar/internal/metrics"
	"neovar/internal/nas"
	"neovar/internal/project"
	"neovar/internal/store"
	"neovar/internal/ws"
)

type server struct {
	cfg     config.Config
	store   *store.Store
	orch    *project.Orchestrator
	hub     *ws.Hub
	metrics *metrics.Metrics
	mailer  *mailer.Mailer
	nas     *nas.Client
}

// countingReader and countingWriter feed the transfer byte counters without
// getting between the stream and its consumer.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
