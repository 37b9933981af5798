package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elvisOC/P10/internal/apperr"
)

// PostgresStore handles all relational CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it doesn't exist. Cascade rules encode
// the ownership tree: project owns contributors and issues, issue owns
// comments and attachments; deleting a user cascades author links and
// nulls out assignee links.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id                 BIGSERIAL PRIMARY KEY,
			username           VARCHAR(150) UNIQUE NOT NULL,
			password           VARCHAR(255) NOT NULL,
			birth_date         DATE NOT NULL,
			can_be_contacted   BOOLEAN NOT NULL DEFAULT FALSE,
			can_data_be_shared BOOLEAN NOT NULL DEFAULT FALSE,
			created_time       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS projects (
			id           BIGSERIAL PRIMARY KEY,
			title        VARCHAR(128) NOT NULL,
			description  VARCHAR(128) NOT NULL,
			type         VARCHAR(10) NOT NULL,
			author_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS contributors (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			UNIQUE (user_id, project_id)
		);
		CREATE TABLE IF NOT EXISTS issues (
			id           BIGSERIAL PRIMARY KEY,
			title        VARCHAR(128) NOT NULL,
			description  TEXT NOT NULL,
			priority     VARCHAR(10) NOT NULL,
			tag          VARCHAR(10) NOT NULL,
			progress     VARCHAR(10) NOT NULL DEFAULT 'TODO',
			author_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			assignee_id  BIGINT REFERENCES users(id) ON DELETE SET NULL,
			project_id   BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			created_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS comments (
			id           BIGSERIAL PRIMARY KEY,
			uuid         UUID UNIQUE NOT NULL,
			title        VARCHAR(64) NOT NULL,
			description  TEXT NOT NULL,
			issue_id     BIGINT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			author_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS attachments (
			id           BIGSERIAL PRIMARY KEY,
			issue_id     BIGINT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
			author_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			filename     VARCHAR(255) NOT NULL,
			content_type VARCHAR(128) NOT NULL,
			size_bytes   BIGINT NOT NULL,
			object_key   VARCHAR(255) UNIQUE NOT NULL,
			created_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// notFoundOr translates pgx.ErrNoRows into the API's not-found error.
func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what)
	}
	return apperr.Internal(err)
}
