package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `
	id, first_name, last_name, email, password_hash, role, timezone,
	COALESCE(profile_picture, ''), is_email_verified,
	COALESCE(verification_token, ''), verification_expires_at,
	deactivated_at, created_at, updated_at
`

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.PasswordHash, &user.Role, &user.Timezone,
		&user.ProfilePicture, &user.IsEmailVerified,
		&user.VerificationToken, &user.VerificationExpiresAt,
		&user.DeactivatedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, timezone, verification_token, verification_expires_at)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING `+userColumns+`
	`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.Role, user.Timezone, user.VerificationToken, user.VerificationExpiresAt)
	created, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=LOWER($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByVerificationToken(ctx context.Context, token string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, user User) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET first_name=$2, last_name=$3, timezone=$4, profile_picture=NULLIF($5, ''), updated_at=NOW()
		WHERE id=$1
		RETURNING `+userColumns+`
	`, user.ID, user.FirstName, user.LastName, user.Timezone, user.ProfilePicture)
	updated, err := scanUser(row)
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) MarkEmailVerified(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE id=$1
	`, userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeactivateUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET deactivated_at=NOW(), updated_at=NOW() WHERE id=$1 AND deactivated_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, session RefreshSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, jti, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, jti=EXCLUDED.jti, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, session.TokenHash, session.UserID, session.JTI, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (RefreshSession, error) {
	var session RefreshSession
	err := s.db.QueryRowContext(ctx, `
		SELECT token_hash, user_id, jti, expires_at, created_at
		FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&session.TokenHash, &session.UserID, &session.JTI, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		return RefreshSession{}, err
	}
	return session, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeUserRefreshSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE user_id=$1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("revoke user refresh sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePasswordReset(ctx context.Context, reset PasswordReset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, used_at=NULL
	`, reset.TokenHash, reset.UserID, reset.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) ConsumePasswordReset(ctx context.Context, tokenHash string) (PasswordReset, error) {
	var reset PasswordReset
	err := s.db.QueryRowContext(ctx, `
		UPDATE password_resets
		SET used_at=NOW()
		WHERE token_hash=$1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING token_hash, user_id, expires_at, created_at
	`, tokenHash).Scan(&reset.TokenHash, &reset.UserID, &reset.ExpiresAt, &reset.CreatedAt)
	if err != nil {
		return PasswordReset{}, err
	}
	return reset, nil
}
