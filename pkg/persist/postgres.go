package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

func openPostgres(dsn string) (*sql.DB, dialect, error) {
	if _, err := pq.ParseURL(dsn); err != nil {
		return nil, dialect{}, fmt.Errorf("invalid dsn: %w", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, dialect{}, err
	}
	return db, postgresDialect, nil
}

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS projects (
    id CHAR(36) PRIMARY KEY,
    seq BIGSERIAL UNIQUE,
    name VARCHAR(255) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS tasks (
    id CHAR(36) PRIMARY KEY,
    seq BIGSERIAL UNIQUE,
    title TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    category VARCHAR(20) NOT NULL DEFAULT 'Inbox',
    project_id CHAR(36) NULL
)`,
	},
	upsertProject: `INSERT INTO projects (id, name) VALUES (?, ?)
    ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
	upsertTask: `INSERT INTO tasks (id, title, created_at, is_completed, category, project_id)
    VALUES (?, ?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
      title=EXCLUDED.title,
      is_completed=EXCLUDED.is_completed,
      category=EXCLUDED.category,
      project_id=EXCLUDED.project_id`,
	bind: rebindDollar,
	wrap: func(err error) error {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("postgres %s: %w", pqErr.Code.Name(), err)
		}
		return err
	},
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
