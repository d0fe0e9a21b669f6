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

// UserDB is the users table. Obtain one with DB.Users.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

const userColumns = `id, github_id, login, email, avatar_url, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &githubID, &u.Login, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

// nullableGitHubID stores zero as NULL so email-only accounts don't collide
// on the UNIQUE constraint.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user, assigning its ID and timestamps in place.
// A duplicate GitHub ID or email fails with apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullableGitHubID(user.GitHubID),
		user.Login,
		user.Email,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.Login)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Login, err)
	}
	return nil
}

// Upsert inserts or refreshes a GitHub user.
//
// The existing row is found by github_id, or failing that by email, which
// links a GitHub login to an account first created through email sign-in.
// The internal ID of an existing row is kept.
func (u *UserDB) Upsert(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)

	var existingID string
	err := u.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}
	if existingID == "" && user.Email != "" {
		err = u.conn.QueryRowContext(ctx,
			`SELECT id FROM users WHERE email = ?`, user.Email,
		).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by email: %w", err)
		}
	}

	if existingID == "" {
		return u.Create(ctx, user)
	}

	// Existing user: refresh the profile in case login, email or avatar
	// changed on GitHub.
	user.ID = existingID
	user.UpdatedAt = time.Now().UTC()
	_, err = u.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, login = ?, email = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		nullableGitHubID(user.GitHubID),
		user.Login,
		user.Email,
		user.AvatarURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	err = u.conn.QueryRowContext(ctx,
		`SELECT created_at FROM users WHERE id = ?`, user.ID,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email address, ignoring case.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND email != ''`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}
