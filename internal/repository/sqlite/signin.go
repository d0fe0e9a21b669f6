package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/repository"
)

// SignInCodeDB is the sign_in_codes table. Obtain one with DB.SignInCodes.
type SignInCodeDB struct {
	conn *sql.DB
}

var _ repository.SignInCodeRepository = (*SignInCodeDB)(nil)

func (db *DB) SignInCodes() *SignInCodeDB {
	return &SignInCodeDB{conn: db.conn}
}

// Save stores code, replacing any earlier pending code for the same email.
func (s *SignInCodeDB) Save(ctx context.Context, code *model.SignInCode) error {
	code.ID = xid.New().String()
	code.Email = normalizeEmail(code.Email)
	code.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sign_in_codes (id, email, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   id = excluded.id,
		   code_hash = excluded.code_hash,
		   expires_at = excluded.expires_at,
		   created_at = excluded.created_at`,
		code.ID,
		code.Email,
		code.CodeHash,
		code.ExpiresAt.UTC(),
		code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving sign-in code: %w", err)
	}
	return nil
}

// Get returns the pending code for email.
func (s *SignInCodeDB) Get(ctx context.Context, email string) (*model.SignInCode, error) {
	var c model.SignInCode
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, email, code_hash, expires_at, created_at
		 FROM sign_in_codes WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("sign-in code", email)
		}
		return nil, fmt.Errorf("sqlite: getting sign-in code: %w", err)
	}
	return &c, nil
}

// Consume deletes the code. Two verifications racing on the same code see
// one success and one ErrNotFound.
func (s *SignInCodeDB) Consume(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM sign_in_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: consuming sign-in code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("sign-in code", id)
	}
	return nil
}

// DeleteExpired removes codes past their expiry and returns how many.
func (s *SignInCodeDB) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM sign_in_codes WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sign-in codes: %w", err)
	}
	return result.RowsAffected()
}
