// Package repositories holds the PostgreSQL implementations of the domain
// repository contracts.
package repositories

import (
	"context"
	"database/sql"
	stdliberrors "errors"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/postgres"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

const userColumns = `id, email, username, password_hash, first_name, last_name, phone_number,
	country_code, timezone, preferred_currency, bio, avatar_url, role, status, is_active,
	is_verified, hedera_account_id, wallet_address, total_stakes, total_winnings,
	success_rate, reputation_score, last_login_at, email_verified_at, created_at, updated_at`

type postgresUserRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewUserRepository returns a user.Repository backed by conn.
func NewUserRepository(conn *postgres.Connection, log logging.Logger) user.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresUserRepo{log: log, executor: conn.DB()}
}

func (r *postgresUserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.executor.ExecContext(ctx, query, r.values(u)...)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailExists
		}
		r.log.Error("Failed to create user", logging.String(logging.FieldUserID, u.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create user")
	}
	return nil
}

func (r *postgresUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *postgresUserRepo) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			email = $2, username = $3, password_hash = $4, first_name = $5, last_name = $6,
			phone_number = $7, country_code = $8, timezone = $9, preferred_currency = $10,
			bio = $11, avatar_url = $12, role = $13, status = $14, is_active = $15,
			is_verified = $16, hedera_account_id = $17, wallet_address = $18,
			total_stakes = $19, total_winnings = $20, success_rate = $21,
			reputation_score = $22, last_login_at = $23, email_verified_at = $24,
			updated_at = $25
		WHERE id = $1`

	u.UpdatedAt = time.Now().UTC()
	vals := r.values(u)
	// created_at is immutable.
	args := append(vals[:24:24], vals[25])
	res, err := r.executor.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailExists
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// values returns u's columns in userColumns order.
func (r *postgresUserRepo) values(u *user.User) []interface{} {
	return []interface{}{
		u.ID, u.Email, nullString(u.Username), u.PasswordHash, nullString(u.FirstName),
		nullString(u.LastName), nullString(u.PhoneNumber), nullString(u.CountryCode),
		u.Timezone, u.PreferredCurrency, nullString(u.Bio), nullString(u.AvatarURL),
		string(u.Role), string(u.Status), u.IsActive, u.IsVerified,
		nullString(u.HederaAccountID), nullString(u.WalletAddress), u.TotalStakes,
		u.TotalWinnings, u.SuccessRate, u.ReputationScore, u.LastLoginAt,
		u.EmailVerifiedAt, u.CreatedAt, u.UpdatedAt,
	}
}

func scanUser(row scanner) (*user.User, error) {
	var (
		u                                     user.User
		username, first, last, phone, country sql.NullString
		bio, avatar, hedera, wallet           sql.NullString
		role, status                          string
		lastLogin, verifiedAt                 sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &username, &u.PasswordHash, &first, &last, &phone,
		&country, &u.Timezone, &u.PreferredCurrency, &bio, &avatar, &role, &status, &u.IsActive,
		&u.IsVerified, &hedera, &wallet, &u.TotalStakes, &u.TotalWinnings,
		&u.SuccessRate, &u.ReputationScore, &lastLogin, &verifiedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if stdliberrors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load user")
	}

	u.Username = username.String
	u.FirstName = first.String
	u.LastName = last.String
	u.PhoneNumber = phone.String
	u.CountryCode = country.String
	u.Bio = bio.String
	u.AvatarURL = avatar.String
	u.HederaAccountID = hedera.String
	u.WalletAddress = wallet.String
	u.Role = user.Role(role)
	u.Status = user.Status(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		u.EmailVerifiedAt = &t
	}
	return &u, nil
}
