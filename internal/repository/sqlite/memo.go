package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/repository"
)

// Compile-time check that *DB implements repository.MemoRepository.
var _ repository.MemoRepository = (*DB)(nil)

const memoColumns = `id, user_id, title, content, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemo(row rowScanner) (model.Memo, error) {
	var m model.Memo
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.Content, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	// Rows written before the title column existed.
	if m.Title == "" {
		m.Title = model.DeriveTitle(m.Content)
	}
	return m, nil
}

// Create inserts memo, assigning its ID and timestamps in place. The title
// is derived from the content; whatever the caller put in Title is ignored.
//
// xid ids are 20 URL-safe characters and sort by creation time, so
// "ORDER BY created_at DESC, id DESC" is stable even within one second.
func (db *DB) Create(ctx context.Context, memo *model.Memo) error {
	memo.ID = xid.New().String()
	now := time.Now().UTC()
	memo.CreatedAt = now
	memo.UpdatedAt = now
	memo.SetContent(memo.Content)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO memos (id, user_id, title, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		memo.ID,
		memo.UserID,
		memo.Title,
		memo.Content,
		memo.CreatedAt,
		memo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating memo: %w", err)
	}
	return nil
}

// GetByID returns the memo with id if userID owns it. Someone else's memo
// is reported as not found, so ids can't be probed.
func (db *DB) GetByID(ctx context.Context, userID, id string) (*model.Memo, error) {
	m, err := scanMemo(db.conn.QueryRowContext(ctx,
		`SELECT `+memoColumns+` FROM memos WHERE id = ? AND user_id = ?`,
		id, userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("memo", id)
		}
		return nil, fmt.Errorf("sqlite: getting memo %s: %w", id, err)
	}
	return &m, nil
}

// List returns userID's memos, newest first.
func (db *DB) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Memo, error) {
	// SQLite treats a negative LIMIT as "no limit".
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + memoColumns + ` FROM memos WHERE user_id = ?`
	args := []any{userID}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memos: %w", err)
	}
	defer rows.Close()

	memos := make([]model.Memo, 0)
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning memo row: %w", err)
		}
		memos = append(memos, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memos: %w", err)
	}
	return memos, nil
}

// Update writes memo's content and re-derived title. The row must belong to
// memo.UserID. On success memo holds the stored row, including CreatedAt.
func (db *DB) Update(ctx context.Context, memo *model.Memo) error {
	memo.UpdatedAt = time.Now().UTC()
	memo.SetContent(memo.Content)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE memos
		 SET title = ?, content = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		memo.Title,
		memo.Content,
		memo.UpdatedAt,
		memo.ID,
		memo.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating memo %s: %w", memo.ID, err)
	}

	// Zero rows affected means the memo is missing or someone else's.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("memo", memo.ID)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT created_at FROM memos WHERE id = ?`, memo.ID,
	).Scan(&memo.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back memo %s: %w", memo.ID, err)
	}
	return nil
}

// Delete removes userID's memo id.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM memos WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting memo %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("memo", id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
