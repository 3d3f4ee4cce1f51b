package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neovar/internal/models"
)

var (
	ErrLedgerNotFound    = errors.New("no usage ledger for this email")
	ErrInsufficientQuota = errors.New("insufficient counters to start a new project")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DebitQuota subtracts requested from the user's remaining balance in a
// single conditional update, so concurrent session starts cannot both pass
// the check. Zero rows affected means either no ledger or not enough left.
// The ledger is never credited here; a negative request is an input error,
// not a refund.
func (s *Store) DebitQuota(ctx context.Context, email string, requested int) (remaining int, err error) {
	if requested < 0 {
		return 0, fmt.Errorf("requested sample count must be non-negative, got %d", requested)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res := s.db.WithContext(ctx).
		Model(&usageLedgerRow{}).
		Where("email = ? AND remaining >= ?", email, requested).
		Updates(map[string]any{
			"remaining":  gorm.Expr("remaining - ?", requested),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&usageLedgerRow{}).
			Where("email = ?", email).
			Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, ErrLedgerNotFound
		}
		return 0, ErrInsufficientQuota
	}

	var row usageLedgerRow
	if err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&row).Error; err != nil {
		return 0, err
	}
	return row.Remaining, nil
}

func (s *Store) GetLedger(ctx context.Context, email string) (remaining int, ok bool, err error) {
	var row usageLedgerRow
	if err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return row.Remaining, true, nil
}

func (s *Store) UpsertLedger(ctx context.Context, email string, remaining int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	row := usageLedgerRow{Email: email, Remaining: remaining, UpdatedAt: now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"remaining", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) HasActiveProject(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&activeProjectRow{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertProject refreshes the active row matched by (projectName, email), or
// inserts one with a freshly generated project identifier on first contact.
//
// Update semantics are merge, not replace: zero/empty inputs leave the stored
// value alone, and progress never moves backwards. The insert ignores a
// project_id conflict and retries with the next sequence so a racing first
// upsert cannot silently drop a row.
func (s *Store) UpsertProject(ctx context.Context, in models.ProjectUpsert) error {
	updates := map[string]any{
		"progress": gorm.Expr("CASE WHEN progress > ? THEN progress ELSE ? END", in.Progress, in.Progress),
	}
	if in.InputDir != "" {
		updates["input_dir"] = in.InputDir
	}
	if in.TestType != "" {
		updates["test_type"] = in.TestType
	}
	if in.ScriptPath != "" {
		updates["script_path"] = in.ScriptPath
	}
	if in.NumberOfSamples > 0 {
		updates["number_of_samples"] = in.NumberOfSamples
	}
	if len(in.VCFPaths) > 0 {
		updates["vcf_paths_json"] = encodeVCFPaths(in.VCFPaths)
	}

	res := s.db.WithContext(ctx).
		Model(&activeProjectRow{}).
		Where("project_name = ? AND email = ?", in.ProjectName, in.Email).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	startTime := in.StartTime
	if startTime == "" {
		startTime = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		projectID, err := s.nextProjectID(ctx, in.Email, attempt)
		if err != nil {
			return err
		}
		row := activeProjectRow{
			ProjectID:       projectID,
			ProjectName:     in.ProjectName,
			InputDir:        in.InputDir,
			TestType:        in.TestType,
			Email:           in.Email,
			Progress:        in.Progress,
			NumberOfSamples: in.NumberOfSamples,
			StartTime:       startTime,
			SessionID:       in.SessionID,
			ScriptPath:      in.ScriptPath,
			VCFPathsJSON:    encodeVCFPaths(in.VCFPaths),
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// A concurrent first upsert for the same email may have won the
		// race outright; if its row is already there, the update path
		// applies on the next call and there is nothing left to insert.
		exists, err := s.activeExists(ctx, in.ProjectName, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	return fmt.Errorf("could not assign a project identifier for %q after %d attempts", in.Email, maxAttempts)
}

func (s *Store) activeExists(ctx context.Context, projectName, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&activeProjectRow{}).
		Where("project_name = ? AND email = ?", projectName, email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var projectIDPattern = regexp.MustCompile(`^PRJ-\d{8}-(\d+)$`)

// nextProjectID computes PRJ-<yyyymmdd>-<NN> where NN is one past the highest
// sequence across all of the user's historical identifiers, regardless of the
// date embedded in them. offset bumps the sequence on insert-conflict retries.
func (s *Store) nextProjectID(ctx context.Context, email string, offset int) (string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&completedProjectRow{}).
		Select("project_id").
		Where("email = ?", email).
		Pluck("project_id", &ids).Error; err != nil {
		return "", err
	}

	maxSeq := 0
	for _, id := range ids {
		m := projectIDPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}

	date := time.Now().Format("20060102")
	return fmt.Sprintf("PRJ-%s-%02d", date, maxSeq+1+offset), nil
}

func (s *Store) ActiveBySession(ctx context.Context, sessionID, email string) (models.ActiveProject, bool, error) {
	var row activeProjectRow
	if err := s.db.WithContext(ctx).
		Where("session_id = ? AND email = ?", sessionID, email).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ActiveProject{}, false, nil
		}
		return models.ActiveProject{}, false, err
	}
	return activeFromRow(row), true, nil
}

// CompleteProject moves an active row to the completed table in one
// transaction. The insert ignores conflicts so concurrent polls racing the
// migration end up with exactly one completed row.
func (s *Store) CompleteProject(ctx context.Context, p models.ActiveProject) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("project_name = ? AND email = ?", p.ProjectName, p.Email).
			Delete(&activeProjectRow{}).Error; err != nil {
			return err
		}
		row := completedProjectRow{
			ProjectID:       p.ProjectID,
			ProjectName:     p.ProjectName,
			Email:           p.Email,
			NumberOfSamples: p.NumberOfSamples,
			StartTime:       p.StartTime,
			CreationTime:    now,
			SessionID:       p.SessionID,
			VCFPathsJSON:    encodeVCFPaths(p.VCFPaths),
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	})
}

func (s *Store) CompletedByEmail(ctx context.Context, email string) ([]models.CompletedProject, error) {
	var rows []completedProjectRow
	if err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Order("project_id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.CompletedProject, 0, len(rows))
	for _, row := range rows {
		out = append(out, completedFromRow(row))
	}
	return out, nil
}

func (s *Store) CompletedByID(ctx context.Context, projectID, email string) (models.CompletedProject, bool, error) {
	var row completedProjectRow
	if err := s.db.WithContext(ctx).
		Where("project_id = ? AND email = ?", projectID, email).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CompletedProject{}, false, nil
		}
		return models.CompletedProject{}, false, err
	}
	return completedFromRow(row), true, nil
}

func (s *Store) CreateHelpQuery(ctx context.Context, name, email, subject, message string) (models.HelpQuery, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	row := helpQueryRow{
		ID:        ulid.Make().String(),
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.HelpQuery{}, err
	}
	return models.HelpQuery{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Subject:   row.Subject,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}, nil
}

func activeFromRow(row activeProjectRow) models.ActiveProject {
	return models.ActiveProject{
		ProjectID:       row.ProjectID,
		ProjectName:     row.ProjectName,
		InputDir:        row.InputDir,
		TestType:        row.TestType,
		Email:           row.Email,
		Progress:        row.Progress,
		NumberOfSamples: row.NumberOfSamples,
		StartTime:       row.StartTime,
		SessionID:       row.SessionID,
		ScriptPath:      row.ScriptPath,
		VCFPaths:        decodeVCFPaths(row.VCFPathsJSON),
	}
}

func completedFromRow(row completedProjectRow) models.CompletedProject {
	return models.CompletedProject{
		ProjectID:       row.ProjectID,
		ProjectName:     row.ProjectName,
		Email:           row.Email,
		NumberOfSamples: row.NumberOfSamples,
		StartTime:       row.StartTime,
		CreationTime:    row.CreationTime,
		SessionID:       row.SessionID,
		VCFPaths:        decodeVCFPaths(row.VCFPathsJSON),
	}
}

func encodeVCFPaths(paths []string) string {
	if len(paths) == 0 {
		return "[]"
	}
	buf, err := json.Marshal(paths)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func decodeVCFPaths(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}
