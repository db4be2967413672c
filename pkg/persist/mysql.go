package persist

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

func openMySQL(dsn string) (*sql.DB, dialect, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, dialect{}, fmt.Errorf("invalid dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, dialect{}, err
	}
	return db, mysqlDialect, nil
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS projects (
    id CHAR(36) PRIMARY KEY,
    seq BIGINT NOT NULL AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    UNIQUE KEY uniq_project_seq (seq)
)`,
		`CREATE TABLE IF NOT EXISTS tasks (
    id CHAR(36) PRIMARY KEY,
    seq BIGINT NOT NULL AUTO_INCREMENT,
    title TEXT NOT NULL,
    created_at DATETIME(6) NOT NULL,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    category VARCHAR(20) NOT NULL DEFAULT 'Inbox',
    project_id CHAR(36) NULL,
    UNIQUE KEY uniq_task_seq (seq)
)`,
	},
	upsertProject: `INSERT INTO projects (id, name) VALUES (?, ?)
    ON DUPLICATE KEY UPDATE name=VALUES(name)`,
	upsertTask: `INSERT INTO tasks (id, title, created_at, is_completed, category, project_id)
    VALUES (?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
      title=VALUES(title),
      is_completed=VALUES(is_completed),
      category=VALUES(category),
      project_id=VALUES(project_id)`,
	bind: func(query string) string { return query },
	wrap: func(err error) error {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) {
			return fmt.Errorf("mysql %d: %w", myErr.Number, err)
		}
		return err
	},
}
