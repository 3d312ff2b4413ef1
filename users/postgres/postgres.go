// Package postgres stores users in PostgreSQL through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/jrsteele09/go-forum-accounts/users/postgres/migrations"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

const (
	uniqueViolation    = "23505"
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

var _ users.UserRepo = (*UserRepo)(nil)

// DBTX is the subset of *sql.DB the repository needs
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepo struct {
	db      DBTX
	nowFunc func() time.Time
}

type Option func(*UserRepo)

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(r *UserRepo) {
		r.nowFunc = nowFunc
	}
}

func NewUserRepo(db DBTX, options ...Option) *UserRepo {
	r := &UserRepo{db: db, nowFunc: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Open connects to the database and brings the schema up to date
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.Open] sql.Open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[postgres.Open] ping")
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "[postgres.Migrate] SetDialect")
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Wrap(err, "[postgres.Migrate] UpContext")
	}
	return nil
}

const userColumns = `id, username, email, full_name, password_hash, email_confirmed, lockout_end, access_failed_count, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.nowFunc().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.EmailConfirmed, user.LockoutEnd, user.AccessFailedCount, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case emailConstraint:
				return apperrors.ErrDuplicateEmail
			case usernameConstraint:
				return apperrors.ErrDuplicateUsername
			}
		}
		return errors.Wrap(err, "[UserRepo.Create] insert")
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if !validID(id) {
		return nil, apperrors.ErrUserNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, users.NormalizeEmail(email))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) SetEmailConfirmed(ctx context.Context, id string, confirmed bool) error {
	return r.exec(ctx, "[UserRepo.SetEmailConfirmed]",
		`UPDATE users SET email_confirmed = $2, updated_at = $3 WHERE id = $1`,
		id, confirmed, r.nowFunc().UTC())
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, "[UserRepo.SetPasswordHash]",
		`UPDATE users SET password_hash = $2, access_failed_count = 0, lockout_end = NULL, updated_at = $3 WHERE id = $1`,
		id, hash, r.nowFunc().UTC())
}

// RecordAccessFailure does the increment and the lockout decision in one statement so
// concurrent failures cannot skip the threshold.
func (r *UserRepo) RecordAccessFailure(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error) {
	query := `UPDATE users SET
			lockout_end = CASE WHEN access_failed_count + 1 >= $2 THEN $3 ELSE lockout_end END,
			access_failed_count = CASE WHEN access_failed_count + 1 >= $2 THEN 0 ELSE access_failed_count + 1 END,
			updated_at = $4
		WHERE id = $1
		RETURNING lockout_end`

	if !validID(id) {
		return nil, apperrors.ErrUserNotFound
	}
	var end sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockoutEnd.UTC(), r.nowFunc().UTC()).Scan(&end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "[UserRepo.RecordAccessFailure] update")
	}
	if !end.Valid {
		return nil, nil
	}
	return &end.Time, nil
}

func (r *UserRepo) ResetAccessFailures(ctx context.Context, id string) error {
	return r.exec(ctx, "[UserRepo.ResetAccessFailures]",
		`UPDATE users SET access_failed_count = 0, updated_at = $2 WHERE id = $1`,
		id, r.nowFunc().UTC())
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "[UserRepo.Count] select")
	}
	return n, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*users.User, error) {
	var (
		u   users.User
		end sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.EmailConfirmed, &end, &u.AccessFailedCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "[UserRepo.getOne] select")
	}
	if end.Valid {
		u.LockoutEnd = &end.Time
	}
	return &u, nil
}

func (r *UserRepo) exec(ctx context.Context, op, query string, args ...any) error {
	if id, _ := args[0].(string); !validID(id) {
		return apperrors.ErrUserNotFound
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, op+" update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op+" rows affected")
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ids are UUIDs, anything else would fail the column cast rather than match nothing
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
