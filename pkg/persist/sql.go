package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
)

// dialect holds the statements that differ between database engines. Queries
// are written with ? placeholders and passed through bind.
type dialect struct {
	name          string
	schema        []string
	upsertProject string
	upsertTask    string
	bind          func(query string) string
	wrap          func(err error) error
}

// SQLContext persists entities to MySQL or PostgreSQL. It tracks the entities
// it has handed out or been given and writes all of them on Save; rows are
// ordered by a sequence column so reloads keep insertion order.
type SQLContext struct {
	db *sql.DB
	d  dialect

	mu      sync.Mutex
	live    []model.Entity
	deleted []model.Entity
}

// NewSQLContext opens dsn and creates the tables when missing. postgres://
// and postgresql:// URLs select PostgreSQL, anything else is read as a MySQL
// DSN.
func NewSQLContext(dsn string) (*SQLContext, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, d, err = openPostgres(dsn)
	} else {
		db, d, err = openMySQL(dsn)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, d.wrap(err)
	}
	c := &SQLContext{db: db, d: d}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLContext) Close() error { return c.db.Close() }

func (c *SQLContext) migrate(ctx context.Context) error {
	for _, stmt := range c.d.schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", c.d.name, c.d.wrap(err))
		}
	}
	return nil
}

func (c *SQLContext) Insert(e model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = append(c.live, e)
}

func (c *SQLContext) Delete(e model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.live {
		if cur.Kind() == e.Kind() && cur.EntityID() == e.EntityID() {
			c.live = append(c.live[:i], c.live[i+1:]...)
			break
		}
	}
	c.deleted = append(c.deleted, e)
}

// Save applies pending deletions and upserts every live entity in one transaction.
func (c *SQLContext) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx := context.Background()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return c.d.wrap(err)
	}
	defer tx.Rollback()

	for _, e := range c.deleted {
		table := "tasks"
		if e.Kind() == model.KindProject {
			table = "projects"
		}
		if _, err := tx.ExecContext(ctx, c.d.bind("DELETE FROM "+table+" WHERE id=?"), e.EntityID().String()); err != nil {
			return fmt.Errorf("delete %s %s: %w", e.Kind(), e.EntityID(), c.d.wrap(err))
		}
	}
	for _, e := range c.live {
		switch v := e.(type) {
		case *model.Project:
			_, err = tx.ExecContext(ctx, c.d.bind(c.d.upsertProject), v.ID.String(), v.Name)
		case *model.Task:
			var projectID sql.NullString
			if v.ProjectID != nil {
				projectID = sql.NullString{String: v.ProjectID.String(), Valid: true}
			}
			_, err = tx.ExecContext(ctx, c.d.bind(c.d.upsertTask),
				v.ID.String(), v.Title, v.CreatedAt.UTC(), v.IsCompleted, string(v.Category), projectID)
		}
		if err != nil {
			return fmt.Errorf("save %s %s: %w", e.Kind(), e.EntityID(), c.d.wrap(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return c.d.wrap(err)
	}
	c.deleted = nil
	return nil
}

// QueryAll loads every row of the given kind in insertion order. The returned
// entities replace any previously tracked ones of that kind.
func (c *SQLContext) QueryAll(kind model.EntityKind) ([]model.Entity, error) {
	var (
		out []model.Entity
		err error
	)
	switch kind {
	case model.KindProject:
		out, err = c.queryProjects(context.Background())
	case model.KindTask:
		out, err = c.queryTasks(context.Background())
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err != nil {
		return nil, c.d.wrap(err)
	}

	c.mu.Lock()
	kept := c.live[:0]
	for _, e := range c.live {
		if e.Kind() != kind {
			kept = append(kept, e)
		}
	}
	c.live = append(kept, out...)
	c.mu.Unlock()
	return out, nil
}

func (c *SQLContext) queryProjects(ctx context.Context) ([]model.Entity, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name FROM projects ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var id string
		p := &model.Project{}
		if err := rows.Scan(&id, &p.Name); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("project row %q: %w", id, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *SQLContext) queryTasks(ctx context.Context) ([]model.Entity, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, title, created_at, is_completed, category, project_id
    FROM tasks ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var id, category string
		var projectID sql.NullString
		t := &model.Task{}
		if err := rows.Scan(&id, &t.Title, &t.CreatedAt, &t.IsCompleted, &category, &projectID); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("task row %q: %w", id, err)
		}
		t.Category = model.Category(category)
		if projectID.Valid {
			pid, err := uuid.Parse(projectID.String)
			if err != nil {
				return nil, fmt.Errorf("task %s project %q: %w", id, projectID.String, err)
			}
			t.ProjectID = &pid
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
