package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/swing-analysis/errors"
)

const (
	insertAnalysisQuery = `
        INSERT INTO analyses (
            id, video_url, perspective, player_height_cm, club_length_cm,
            analyzer, response, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	getAnalysisQuery = `
        SELECT id, video_url, perspective, player_height_cm, club_length_cm,
               analyzer, response, created_at
        FROM analyses WHERE id = ?
    `

	listRecentQuery = `
        SELECT id, video_url, perspective, player_height_cm, club_length_cm,
               analyzer, response, created_at
        FROM analyses
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
)

type PreparedStatements struct {
	insert     *sql.Stmt
	get        *sql.Stmt
	listRecent *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.insert, err = db.PrepareContext(ctx, insertAnalysisQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare insert statement")
	}

	if stmts.get, err = db.PrepareContext(ctx, getAnalysisQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare get statement")
	}

	if stmts.listRecent, err = db.PrepareContext(ctx, listRecentQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare listRecent statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.insert,
		stmts.get,
		stmts.listRecent,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
