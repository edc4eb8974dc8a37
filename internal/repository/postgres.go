package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

// Compile-time interface assertion.
var _ AccountRepository = (*PostgresAccountRepo)(nil)

const uniqueViolationCode = "23505"

const accountColumns = `id, email, password_hash, email_verified, is_active, is_superuser, failed_attempts, locked_until, version, created_at, updated_at`

// PostgresAccountRepo implements AccountRepository on pgx.
type PostgresAccountRepo struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepo constructs the repository.
func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: pool}
}

func (r *PostgresAccountRepo) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapError("get account", err)
	}
	return account, nil
}

func (r *PostgresAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	account, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapError("get account by email", err)
	}
	return account, nil
}

const insertAccountSQL = `INSERT INTO accounts (id, email, password_hash, email_verified, is_active, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + accountColumns

func (r *PostgresAccountRepo) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	row := r.db.QueryRow(ctx, insertAccountSQL,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.EmailVerified,
		account.IsActive,
		account.IsSuperuser,
	)
	created, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapError("create account", err)
	}
	return created, nil
}

const updateAccountSQL = `UPDATE accounts
SET email = $2, password_hash = $3, email_verified = $4, is_active = $5, is_superuser = $6,
    version = version + 1, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns

func (r *PostgresAccountRepo) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	row := r.db.QueryRow(ctx, updateAccountSQL,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.EmailVerified,
		account.IsActive,
		account.IsSuperuser,
	)
	updated, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapError("update account", err)
	}
	return updated, nil
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) List(ctx context.Context, offset, limit int) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

const casLockoutSQL = `UPDATE accounts
SET failed_attempts = $3, locked_until = $4, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2`

func (r *PostgresAccountRepo) CompareAndUpdateLockout(ctx context.Context, id, expectedVersion int64, failedAttempts int, lockedUntil *time.Time) error {
	tag, err := r.db.Exec(ctx, casLockoutSQL, id, expectedVersion, failedAttempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("update lockout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *PostgresAccountRepo) ResetLockout(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts
SET failed_attempts = 0, locked_until = NULL, version = version + 1, updated_at = now()
WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) CountSuperusers(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT count(*) FROM accounts WHERE is_superuser`
	if activeOnly {
		query += ` AND is_active`
	}
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count superusers: %w", err)
	}
	return count, nil
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.EmailVerified,
		&account.IsActive,
		&account.IsSuperuser,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}

func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}
