// Package sqlite provides a sqlite-backed configuration store.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/julien-nc/integration-suitecrm/store"
)

type repo struct {
	db *sql.DB
}

func New(path string) (store.Store, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &repo{db: db}, nil
}

func (repo *repo) GetUserValue(ctx context.Context, userID, key, def string) (string, error) {
	const q = `SELECT value FROM user_config WHERE user_id = ? AND key = ?`

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
	const q = `INSERT INTO user_config (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`

	_, err := repo.db.ExecContext(ctx, q, userID, key, value)

	return err
}

func (repo *repo) GetAppValue(ctx context.Context, key, def string) (string, error) {
	const q = `SELECT value FROM app_config WHERE key = ?`

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
	const q = `INSERT INTO app_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

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

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return db, nil
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
