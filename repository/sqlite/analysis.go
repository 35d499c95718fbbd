package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/models"
	"github.com/nijaru/swing-analysis/repository"
	pkgerrors "github.com/pkg/errors"
)

var _ repository.AnalysisRepository = (*Repository)(nil)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) (*Repository, error) {
	const op = "sqlite.NewRepository"

	if db == nil || db.statements == nil {
		return nil, errors.Internal(op, nil, "database is not open")
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Save(ctx context.Context, record *models.AnalysisRecord) error {
	const op = "SQLiteRepository.Save"

	response, err := json.Marshal(record.Response)
	if err != nil {
		return errors.Internal(op, pkgerrors.Wrap(err, "marshal response"), "Failed to encode analysis")
	}

	var lastErr error
	for i := 0; i < r.db.config.MaxRetries; i++ {
		lastErr = r.save(ctx, record, string(response))
		if lastErr == nil {
			return nil
		}
		if !isLockError(lastErr) {
			return errors.Internal(op, lastErr, "Failed to save analysis")
		}

		select {
		case <-ctx.Done():
			return errors.Internal(op, ctx.Err(), "context cancelled")
		case <-time.After(r.db.config.RetryDelay * time.Duration(i+1)):
		}
	}
	return errors.Internal(op, lastErr, "Failed after retries")
}

func (r *Repository) save(ctx context.Context, record *models.AnalysisRecord, response string) error {
	_, err := r.db.statements.insert.ExecContext(ctx,
		record.ID,
		record.Input.VideoURL,
		nullString(record.Input.Perspective),
		nullFloat(record.Input.PlayerHeightCM),
		nullFloat(record.Input.ClubLengthCM),
		record.Analyzer,
		response,
		record.CreatedAt.UTC(),
	)
	return err
}

func (r *Repository) Find(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	const op = "SQLiteRepository.Find"

	record, err := scanRecord(r.db.statements.get.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Analysis not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query analysis")
	}

	return record, nil
}

// ListRecent returns up to limit analyses, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	const op = "SQLiteRepository.ListRecent"

	rows, err := r.db.statements.listRecent.QueryContext(ctx, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query analyses")
	}
	defer rows.Close()

	records := []*models.AnalysisRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to read analysis")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate analyses")
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.AnalysisRecord, error) {
	var (
		record         models.AnalysisRecord
		perspective    sql.NullString
		playerHeightCM sql.NullFloat64
		clubLengthCM   sql.NullFloat64
		response       string
	)

	err := row.Scan(
		&record.ID,
		&record.Input.VideoURL,
		&perspective,
		&playerHeightCM,
		&clubLengthCM,
		&record.Analyzer,
		&response,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if perspective.Valid {
		record.Input.Perspective = &perspective.String
	}
	if playerHeightCM.Valid {
		record.Input.PlayerHeightCM = &playerHeightCM.Float64
	}
	if clubLengthCM.Valid {
		record.Input.ClubLengthCM = &clubLengthCM.Float64
	}

	record.Response = &models.AnalysisResponse{}
	if err := json.Unmarshal([]byte(response), record.Response); err != nil {
		return nil, pkgerrors.Wrapf(err, "decode response of analysis %s", record.ID)
	}

	return &record, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
