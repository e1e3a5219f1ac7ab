package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

var (
	// ErrDuplicate signals a unique-constraint violation (login key or
	// provider account already taken).
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrNotFound signals a mutation that matched zero rows.
	ErrNotFound = errors.New("store: not found")
)

const uniqueViolation = "23505"

// PostgresStore handles users, email verifications and OAuth accounts
// against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the auth tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id                  UUID PRIMARY KEY,
			email               VARCHAR(255) UNIQUE,
			hashed_password     TEXT,
			is_email_verified   BOOLEAN      NOT NULL DEFAULT FALSE,
			role                VARCHAR(16)  NOT NULL DEFAULT 'user',
			name                TEXT         NOT NULL DEFAULT '',
			profile_picture_url TEXT         NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS email_verifications (
			id         UUID PRIMARY KEY,
			user_id    UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			code       VARCHAR(6)  NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS oauth_accounts (
			id               UUID PRIMARY KEY,
			user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider         VARCHAR(16)  NOT NULL,
			provider_user_id VARCHAR(255) NOT NULL,
			access_token     TEXT         NOT NULL,
			refresh_token    TEXT,
			expires_at       TIMESTAMPTZ,
			UNIQUE (provider, provider_user_id)
		)
	`)
	return err
}

// CreateUserWithVerification inserts the user row and its initial email
// verification row in one transaction: a sign-up either fully exists or
// doesn't exist at all.
func (s *PostgresStore) CreateUserWithVerification(ctx context.Context, u *models.User, verificationID, code string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO users (id, email, hashed_password, is_email_verified, role)
		 VALUES ($1, $2, $3, FALSE, $4)`,
		u.ID, u.Email, u.HashedPassword, u.Role,
	)
	if err != nil {
		return wrapPgError("create user", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create user: %w", ErrNotFound)
	}

	tag, err = tx.Exec(ctx,
		`INSERT INTO email_verifications (id, user_id, code, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		verificationID, u.ID, code,
	)
	if err != nil {
		return wrapPgError("create verification", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create verification: %w", ErrNotFound)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, hashed_password, is_email_verified, role, name, profile_picture_url, created_at
		 FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsEmailVerified, &u.Role, &u.Name, &u.ProfilePictureURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetVerification returns the user's live verification row, or nil if none.
func (s *PostgresStore) GetVerification(ctx context.Context, userID string) (*models.EmailVerification, error) {
	var v models.EmailVerification
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, code, created_at FROM email_verifications WHERE user_id = $1`, userID,
	).Scan(&v.ID, &v.UserID, &v.Code, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) CreateVerification(ctx context.Context, v *models.EmailVerification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_verifications (id, user_id, code, created_at) VALUES ($1, $2, $3, $4)`,
		v.ID, v.UserID, v.Code, v.CreatedAt,
	)
	if err != nil {
		return wrapPgError("create verification", err)
	}
	return nil
}

// UpdateVerificationCode overwrites the live row's code and timestamp in
// place. Resends never accumulate rows.
func (s *PostgresStore) UpdateVerificationCode(ctx context.Context, userID, code string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE email_verifications SET code = $1, created_at = $2 WHERE user_id = $3`,
		code, now, userID,
	)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update verification: %w", ErrNotFound)
	}
	return nil
}

// RedeemVerification consumes the verification row matching (userID, code)
// and marks the user verified, atomically. ErrNotFound covers stale or
// already-consumed links: the code must match the current live row.
func (s *PostgresStore) RedeemVerification(ctx context.Context, userID, code string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM email_verifications WHERE user_id = $1 AND code = $2`,
		userID, code,
	)
	if err != nil {
		return fmt.Errorf("redeem verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("redeem verification: %w", ErrNotFound)
	}

	tag, err = tx.Exec(ctx,
		`UPDATE users SET is_email_verified = TRUE WHERE id = $1`, userID,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark verified: %w", ErrNotFound)
	}

	return tx.Commit(ctx)
}

// LinkOAuthAccount executes the link-or-create transaction keyed on
// (provider, providerUserID). First login inserts a user and its account row
// together; a returning login refreshes the stored tokens. Any
// zero-rows-affected write aborts the whole transaction.
func (s *PostgresStore) LinkOAuthAccount(ctx context.Context, link *models.OAuthLink) (string, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM oauth_accounts WHERE provider = $1 AND provider_user_id = $2`,
		link.Provider, link.ProviderUserID,
	).Scan(&userID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		userID = uuid.New().String()
		// OAuth sign-ups count as verified: the provider vouches for the
		// address, and there is no password to gate behind verification.
		tag, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, is_email_verified, role, name, profile_picture_url)
			 VALUES ($1, $2, TRUE, $3, $4, $5)`,
			userID, link.Email, models.RoleUser, link.Name, link.AvatarURL,
		)
		if err != nil {
			return "", false, wrapPgError("create oauth user", err)
		}
		if tag.RowsAffected() == 0 {
			return "", false, fmt.Errorf("create oauth user: %w", ErrNotFound)
		}

		tag, err = tx.Exec(ctx,
			`INSERT INTO oauth_accounts (id, user_id, provider, provider_user_id, access_token, refresh_token, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), userID, link.Provider, link.ProviderUserID,
			link.AccessToken, link.RefreshToken, link.ExpiresAt,
		)
		if err != nil {
			return "", false, wrapPgError("create oauth account", err)
		}
		if tag.RowsAffected() == 0 {
			return "", false, fmt.Errorf("create oauth account: %w", ErrNotFound)
		}

		if err := tx.Commit(ctx); err != nil {
			return "", false, fmt.Errorf("commit: %w", err)
		}
		return userID, true, nil

	case err != nil:
		return "", false, fmt.Errorf("lookup oauth account: %w", err)

	default:
		tag, err := tx.Exec(ctx,
			`UPDATE oauth_accounts SET access_token = $1, refresh_token = $2, expires_at = $3
			 WHERE provider = $4 AND provider_user_id = $5`,
			link.AccessToken, link.RefreshToken, link.ExpiresAt,
			link.Provider, link.ProviderUserID,
		)
		if err != nil {
			return "", false, fmt.Errorf("refresh oauth tokens: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return "", false, fmt.Errorf("refresh oauth tokens: %w", ErrNotFound)
		}

		if err := tx.Commit(ctx); err != nil {
			return "", false, fmt.Errorf("commit: %w", err)
		}
		return userID, false, nil
	}
}

func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
