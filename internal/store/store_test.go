package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"neovar/internal/db"
	"neovar/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(db.Config{
		Backend:    db.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(conn)
}

func TestDebitQuota(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpsertLedger(ctx, "user@lab.test", 10); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	remaining, err := st.DebitQuota(ctx, "user@lab.test", 4)
	if err != nil {
		t.Fatalf("debit within quota: %v", err)
	}
	if remaining != 6 {
		t.Fatalf("expected 6 remaining, got %d", remaining)
	}

	if _, err := st.DebitQuota(ctx, "user@lab.test", 7); !errors.Is(err, ErrInsufficientQuota) {
		t.Fatalf("expected ErrInsufficientQuota, got %v", err)
	}
	got, ok, err := st.GetLedger(ctx, "user@lab.test")
	if err != nil || !ok {
		t.Fatalf("read ledger back: ok=%v err=%v", ok, err)
	}
	if got != 6 {
		t.Fatalf("rejected debit must not change the balance; got %d", got)
	}

	if _, err := st.DebitQuota(ctx, "nobody@lab.test", 1); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
}

func TestDebitQuotaRejectsNegativeRequest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpsertLedger(ctx, "user@lab.test", 10); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	// A negative debit would credit the ledger; there is no refund path.
	if _, err := st.DebitQuota(ctx, "user@lab.test", -5); err == nil {
		t.Fatalf("expected an error for a negative debit")
	}
	got, ok, err := st.GetLedger(ctx, "user@lab.test")
	if err != nil || !ok {
		t.Fatalf("read ledger back: ok=%v err=%v", ok, err)
	}
	if got != 10 {
		t.Fatalf("negative debit must not change the balance; got %d", got)
	}
}

func TestUpsertProjectMergeSemantics(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := models.ProjectUpsert{
		ProjectName:     "run-a",
		Email:           "user@lab.test",
		SessionID:       "sess-1",
		InputDir:        "/neovar/sess-1/inputDir",
		TestType:        "germline",
		Progress:        40,
		NumberOfSamples: 3,
		ScriptPath:      "/opt/scrips/process_session_quantum.sh",
	}
	if err := st.UpsertProject(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// A later call carrying defaulted zero values must not regress stored
	// state.
	if err := st.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName: "run-a",
		Email:       "user@lab.test",
		SessionID:   "sess-1",
	}); err != nil {
		t.Fatalf("zero-value upsert: %v", err)
	}

	got, ok, err := st.ActiveBySession(ctx, "sess-1", "user@lab.test")
	if err != nil || !ok {
		t.Fatalf("read active row: ok=%v err=%v", ok, err)
	}
	if got.Progress != 40 {
		t.Fatalf("progress regressed to %d", got.Progress)
	}
	if got.InputDir != first.InputDir || got.TestType != first.TestType || got.NumberOfSamples != 3 {
		t.Fatalf("merge semantics lost fields: %+v", got)
	}

	// Progress moves forward when the new value is higher.
	if err := st.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName: "run-a",
		Email:       "user@lab.test",
		Progress:    80,
	}); err != nil {
		t.Fatalf("progress upsert: %v", err)
	}
	got, _, err = st.ActiveBySession(ctx, "sess-1", "user@lab.test")
	if err != nil {
		t.Fatalf("re-read active row: %v", err)
	}
	if got.Progress != 80 {
		t.Fatalf("expected progress 80, got %d", got.Progress)
	}

	// Manifest attachment at merge time.
	manifest := []string{"/neovar/sess-1/sess-1/s1_R/s1_R_filtered.vcf.gz"}
	if err := st.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName: "run-a",
		Email:       "user@lab.test",
		VCFPaths:    manifest,
	}); err != nil {
		t.Fatalf("manifest upsert: %v", err)
	}
	got, _, _ = st.ActiveBySession(ctx, "sess-1", "user@lab.test")
	if len(got.VCFPaths) != 1 || got.VCFPaths[0] != manifest[0] {
		t.Fatalf("expected manifest %v, got %v", manifest, got.VCFPaths)
	}
}

func TestProjectIdentifierMonotonicity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"PRJ-20240101-01", "PRJ-20240101-02"} {
		row := completedProjectRow{
			ProjectID:    id,
			ProjectName:  "old-run",
			Email:        "user@lab.test",
			StartTime:    "1700000000000",
			CreationTime: time.Now().UTC().Format(time.RFC3339Nano),
			SessionID:    "old-sess",
			VCFPathsJSON: "[]",
		}
		if err := st.db.Create(&row).Error; err != nil {
			t.Fatalf("seed completed row %s: %v", id, err)
		}
	}

	if err := st.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName: "run-b",
		Email:       "user@lab.test",
		SessionID:   "sess-2",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := st.ActiveBySession(ctx, "sess-2", "user@lab.test")
	if err != nil || !ok {
		t.Fatalf("read active row: ok=%v err=%v", ok, err)
	}
	want := fmt.Sprintf("PRJ-%s-03", time.Now().Format("20060102"))
	if got.ProjectID != want {
		t.Fatalf("expected identifier %s, got %s", want, got.ProjectID)
	}
}

func TestCompleteProjectExactlyOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpsertProject(ctx, models.ProjectUpsert{
		ProjectName:     "run-c",
		Email:           "user@lab.test",
		SessionID:       "sess-3",
		Progress:        100,
		NumberOfSamples: 2,
		VCFPaths:        []string{"/neovar/sess-3/sess-3/s1_R/s1_R_filtered.vcf.gz"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	snapshot, ok, err := st.ActiveBySession(ctx, "sess-3", "user@lab.test")
	if err != nil || !ok {
		t.Fatalf("read active row: ok=%v err=%v", ok, err)
	}

	// A duplicate poll racing the migration replays the same move; the
	// second call must be a no-op.
	if err := st.CompleteProject(ctx, snapshot); err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if err := st.CompleteProject(ctx, snapshot); err != nil {
		t.Fatalf("second migration: %v", err)
	}

	if _, ok, err := st.ActiveBySession(ctx, "sess-3", "user@lab.test"); err != nil || ok {
		t.Fatalf("expected no active row after migration, ok=%v err=%v", ok, err)
	}
	completed, err := st.CompletedByEmail(ctx, "user@lab.test")
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected exactly one completed row, got %d", len(completed))
	}
	got := completed[0]
	if got.ProjectID != snapshot.ProjectID || got.SessionID != "sess-3" || got.NumberOfSamples != 2 {
		t.Fatalf("completed row lost identity fields: %+v", got)
	}
	if len(got.VCFPaths) != 1 {
		t.Fatalf("completed row lost manifest: %+v", got)
	}
	if got.CreationTime == "" {
		t.Fatalf("expected creation time to be set")
	}
}

func TestCreateHelpQuery(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	q, err := st.CreateHelpQuery(ctx, "Ada", "ada@lab.test", "upload stuck", "chunk 12 keeps failing")
	if err != nil {
		t.Fatalf("create help query: %v", err)
	}
	if q.ID == "" || q.CreatedAt == "" {
		t.Fatalf("expected generated id and timestamp, got %+v", q)
	}
}
