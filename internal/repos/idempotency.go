package repos

import (
	"context"
	"database/sql"
	"errors"
)

type Idem struct{ DB *sql.DB }

var (
	ErrInProgress = errors.New("in_progress")
	ErrMismatch   = errors.New("body_mismatch")
)

// Claim registers an idempotency key for (subject, method, path). First
// caller wins and gets (nil, nil); a replay with the same body gets the
// stored response; a replay with a different body gets ErrMismatch; a
// replay racing the first caller gets ErrInProgress.
func (r Idem) Claim(ctx context.Context, key, subject, method, path, bodyHash string) (*string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	_, insErr := tx.ExecContext(ctx,
		"INSERT INTO idempotency_keys(`key`,subject,method,path,body_sha256,result_text,claimed_at,completed_at) VALUES(?,?,?,?,?,NULL,NOW(),NULL)",
		key, subject, method, path, bodyHash,
	)
	if insErr == nil {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var existing struct {
		Body   string
		Comp   sql.NullTime
		Result sql.NullString
	}
	row := tx.QueryRowContext(ctx,
		"SELECT body_sha256, completed_at, result_text FROM idempotency_keys WHERE `key`=? AND subject=? FOR UPDATE",
		key, subject,
	)
	if err := row.Scan(&existing.Body, &existing.Comp, &existing.Result); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if existing.Body != bodyHash {
		_ = tx.Rollback()
		return nil, ErrMismatch
	}
	if !existing.Comp.Valid {
		_ = tx.Rollback()
		return nil, ErrInProgress
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if existing.Result.Valid {
		res := existing.Result.String
		return &res, nil
	}
	return nil, ErrInProgress
}

func (r Idem) Complete(ctx context.Context, key, subject, result string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE idempotency_keys SET result_text=?, completed_at=NOW() WHERE `key`=? AND subject=? AND completed_at IS NULL",
		result, key, subject,
	)
	return err
}
