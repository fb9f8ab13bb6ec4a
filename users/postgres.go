package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `CREATE TABLE IF NOT EXISTS users (
	id                        BIGSERIAL PRIMARY KEY,
	firebase_uid              TEXT NOT NULL UNIQUE,
	email                     TEXT,
	display_name              TEXT,
	guardian_name             TEXT,
	is_guardian               BOOLEAN NOT NULL DEFAULT TRUE,
	subscription_status       TEXT NOT NULL DEFAULT 'trial'
		CHECK (subscription_status IN ('inactive', 'trial', 'active', 'past_due', 'canceled')),
	subscription_plan         TEXT NOT NULL DEFAULT 'free',
	subscription_renewal_date TIMESTAMPTZ,
	billing_email             TEXT,
	billing_phone             TEXT,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const userColumns = `id, firebase_uid, email, display_name, guardian_name, is_guardian,
	subscription_status, subscription_plan, subscription_renewal_date,
	billing_email, billing_phone, created_at, updated_at`

// PostgresStore is a Store on a PostgreSQL users table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects through the pgx database/sql driver and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// FindOrCreate implements Store with a single upsert so concurrent first
// sign-ins of the same uid converge on one row.
func (s *PostgresStore) FindOrCreate(ctx context.Context, defaults User) (*User, error) {
	query := `INSERT INTO users (firebase_uid, email, display_name, guardian_name, is_guardian, subscription_status, subscription_plan)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (firebase_uid) DO UPDATE SET firebase_uid = EXCLUDED.firebase_uid
	          RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		defaults.FirebaseUID, nullable(defaults.Email), nullable(defaults.DisplayName),
		nullable(defaults.GuardianName), defaults.IsGuardian,
		defaults.SubscriptionStatus, defaults.SubscriptionPlan,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

// UpdateProfile implements Store.
func (s *PostgresStore) UpdateProfile(ctx context.Context, u *User) error {
	query := `UPDATE users SET email = $2, display_name = $3, guardian_name = $4, updated_at = now()
	          WHERE id = $1 RETURNING updated_at`

	err := s.db.QueryRowContext(ctx, query,
		u.ID, nullable(u.Email), nullable(u.DisplayName), nullable(u.GuardianName),
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("users: no user with id %d", u.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u                          User
		email, display, guardian   sql.NullString
		billingEmail, billingPhone sql.NullString
		renewal                    sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.FirebaseUID, &email, &display, &guardian, &u.IsGuardian,
		&u.SubscriptionStatus, &u.SubscriptionPlan, &renewal,
		&billingEmail, &billingPhone, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.DisplayName = display.String
	u.GuardianName = guardian.String
	u.BillingEmail = billingEmail.String
	u.BillingPhone = billingPhone.String
	if renewal.Valid {
		t := renewal.Time
		u.SubscriptionRenewalDate = &t
	}
	return &u, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
