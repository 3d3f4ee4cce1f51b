package project

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"neovar/internal/archive"
	"neovar/internal/models"
	"neovar/internal/store"
	"neovar/internal/transfer"
	"neovar/internal/ws"
)

var (
	ErrProjectActive     = errors.New("a project is already running with this email")
	ErrInsufficientQuota = store.ErrInsufficientQuota
	ErrLedgerNotFound    = store.ErrLedgerNotFound
	ErrNotFound          = errors.New("not found")
)

// Orchestrator owns the session/project lifecycle: the quota gate, the
// per-chunk metadata upsert, the merge trigger + output manifest, and the
// completion migration. Pipeline progress itself is advanced externally; the
// orchestrator only observes it.
type Orchestrator struct {
	store  *store.Store
	dialer transfer.Dialer
	root   string
	hub    *ws.Hub
}

type Config struct {
	Store      *store.Store
	Dialer     transfer.Dialer
	RemoteRoot string
	Hub        *ws.Hub
}

func New(cfg Config) *Orchestrator {
	root := strings.TrimSpace(cfg.RemoteRoot)
	if root == "" {
		root = "/neovar"
	}
	return &Orchestrator{
		store:  cfg.Store,
		dialer: cfg.Dialer,
		root:   root,
		hub:    cfg.Hub,
	}
}

func (o *Orchestrator) RemoteRoot() string { return o.root }

// StartSession admits a new upload session: rejects when the user already has
// a running project, then debits the usage ledger. The debit is a single
// conditional update, so two racing starts cannot both pass the balance
// check.
func (o *Orchestrator) StartSession(ctx context.Context, email string, requestedSamples int) error {
	active, err := o.store.HasActiveProject(ctx, email)
	if err != nil {
		return err
	}
	if active {
		return ErrProjectActive
	}
	_, err = o.store.DebitQuota(ctx, email, requestedSamples)
	return err
}

// RecordChunk streams one chunk to the NAS. Storage is keyed by
// (sessionId, fileName, chunkIndex), so retries overwrite in place. Chunk
// bookkeeping is not tracked here; the client asserts completeness via
// TriggerMerge.
func (o *Orchestrator) RecordChunk(ctx context.Context, sessionID, fileName string, chunkIndex int, payload io.Reader) error {
	remotePath := ChunkPath(o.root, sessionID, fileName, chunkIndex)

	conn, err := o.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.EnsureDir(parentDir(remotePath)); err != nil {
		return err
	}
	if err := conn.Upload(remotePath, payload); err != nil {
		return err
	}

	o.publish("chunk.stored", sessionID, map[string]any{
		"fileName":   fileName,
		"chunkIndex": chunkIndex,
	})
	return nil
}

// UpsertInput mirrors the fields refreshed on every chunk upload and on
// merge. Progress and SampleCount are loosely typed on purpose: callers
// forward raw query/body values and non-numeric input coerces to zero.
type UpsertInput struct {
	ProjectName string
	Email       string
	SessionID   string
	InputDir    string
	TestType    string
	Progress    any
	SampleCount any
	ScriptPath  string
	VCFPaths    []string
}

// UpsertSessionMetadata is safe to call repeatedly and out of order: it
// merges rather than replaces, so a later call carrying defaulted zero values
// does not regress previously recorded state.
func (o *Orchestrator) UpsertSessionMetadata(ctx context.Context, in UpsertInput) error {
	return o.store.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName:     in.ProjectName,
		Email:           in.Email,
		SessionID:       in.SessionID,
		InputDir:        in.InputDir,
		TestType:        in.TestType,
		Progress:        CoerceCount(in.Progress),
		NumberOfSamples: CoerceCount(in.SampleCount),
		StartTime:       strconv.FormatInt(time.Now().UnixMilli(), 10),
		ScriptPath:      in.ScriptPath,
		VCFPaths:        in.VCFPaths,
	})
}

type MergeInput struct {
	SessionID   string
	FileNames   []string
	TestName    string
	SampleCount any
	Email       string
	ProjectName string
}

// TriggerMerge writes one marker file per input file to the remote triggers
// directory (the signal the pipeline watches for) and derives the predicted
// output manifest: one path per distinct base sample name, first occurrence
// wins. The manifest is attached to the active record and returned.
func (o *Orchestrator) TriggerMerge(ctx context.Context, in MergeInput) ([]string, error) {
	conn, err := o.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.EnsureDir(parentDir(TriggerPath(o.root, in.SessionID, "x"))); err != nil {
		return nil, err
	}

	manifest := make([]string, 0, len(in.FileNames))
	seen := make(map[string]struct{}, len(in.FileNames))
	for _, fileName := range in.FileNames {
		baseName := BaseSampleName(fileName)
		if _, ok := seen[baseName]; !ok {
			seen[baseName] = struct{}{}
			manifest = append(manifest, PredictedOutputPath(o.root, in.SessionID, baseName))
		}

		flag := fileName + "\n" + in.TestName
		if err := conn.Upload(TriggerPath(o.root, in.SessionID, fileName), strings.NewReader(flag)); err != nil {
			return nil, err
		}
	}

	if err := o.UpsertSessionMetadata(ctx, UpsertInput{
		ProjectName: in.ProjectName,
		Email:       in.Email,
		SessionID:   in.SessionID,
		TestType:    in.TestName,
		SampleCount: in.SampleCount,
		VCFPaths:    manifest,
	}); err != nil {
		return nil, err
	}

	o.publish("merge.triggered", in.SessionID, map[string]any{
		"files":    len(in.FileNames),
		"manifest": manifest,
	})
	return manifest, nil
}

// PollProgress returns the active record for (sessionId, email). When the
// external pipeline has reported 100%, it also migrates the record to the
// completed table; the pre-migration snapshot is returned either way. A poll
// racing the migration can observe not-found; callers treat that as
// transient.
func (o *Orchestrator) PollProgress(ctx context.Context, sessionID, email string) (models.ActiveProject, bool, error) {
	snapshot, ok, err := o.store.ActiveBySession(ctx, sessionID, email)
	if err != nil || !ok {
		return models.ActiveProject{}, ok, err
	}

	if snapshot.Progress == 100 {
		if err := o.store.CompleteProject(ctx, snapshot); err != nil {
			return models.ActiveProject{}, true, err
		}
		o.publish("project.completed", sessionID, map[string]any{
			"projectId": snapshot.ProjectID,
		})
	}
	return snapshot, true, nil
}

func (o *Orchestrator) CompletedProjects(ctx context.Context, email string) ([]models.CompletedProject, error) {
	return o.store.CompletedByEmail(ctx, email)
}

func (o *Orchestrator) CompletedProject(ctx context.Context, projectID, email string) (models.CompletedProject, bool, error) {
	return o.store.CompletedByID(ctx, projectID, email)
}

// StreamArchive zips the given remote files into w, entry names taken from
// the file base names. The caller has typically already written response
// headers, so a mid-stream failure can only truncate the archive; the error
// is returned for logging.
func (o *Orchestrator) StreamArchive(ctx context.Context, remotePaths []string, w io.Writer) error {
	conn, err := o.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	entries := make([]archive.Entry, 0, len(remotePaths))
	for _, remotePath := range remotePaths {
		entries = append(entries, archive.Entry{RemotePath: remotePath, Name: path.Base(remotePath)})
	}
	return archive.StreamZip(ctx, conn, entries, w)
}

func (o *Orchestrator) publish(eventType, sessionID string, payload map[string]any) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(ws.Event{Type: eventType, SessionID: sessionID, Payload: payload})
}

func parentDir(remotePath string) string {
	idx := strings.LastIndex(remotePath, "/")
	if idx <= 0 {
		return "/"
	}
	return remotePath[:idx]
}
