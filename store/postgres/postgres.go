// Package postgres provides a postgres-backed configuration store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/julien-nc/integration-suitecrm/store"
)

type repo struct {
	db *sql.DB
}

func New(dsn string) (store.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &repo{db: db}, nil
}

func (repo *repo) GetUserValue(ctx context.Context, userID, key, def string) (string, error) {
	const q = `SELECT value FROM user_config WHERE user_id = $1 AND key = $2`

	var value string

	err := repo.db.QueryRowContext(ctx, q, userID, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return def, nil
		}

		return "", err
	}

	return value, nil
}

func (repo *repo) SetUserValue(ctx context.Context, userID, key, value string) error {
	const q = `INSERT INTO user_config (user_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value`

	_, err := repo.db.ExecContext(ctx, q, userID, key, value)

	return err
}

func (repo *repo) GetAppValue(ctx context.Context, key, def string) (string, error) {
	const q = `SELECT value FROM app_config WHERE key = $1`

	var value string

	err := repo.db.QueryRowContext(ctx, q, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return def, nil
		}

		return "", err
	}

	return value, nil
}

func (repo *repo) SetAppValue(ctx context.Context, key, value string) error {
	const q = `INSERT INTO app_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	_, err := repo.db.ExecContext(ctx, q, key, value)

	return err
}

func (repo *repo) ListUsers(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT user_id FROM user_config ORDER BY user_id`

	rows, err := repo.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []string

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}

		ans = append(ans, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ans, nil
}

func (repo *repo) Close() error {
	return repo.db.Close()
}

func createSchema(db *sql.DB) error {
	const appTable = `CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

	const userTable = `CREATE TABLE IF NOT EXISTS user_config (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (user_id, key)
	)`

	if _, err := db.Exec(appTable); err != nil {
		return err
	}

	_, err := db.Exec(userTable)

	return err
}
