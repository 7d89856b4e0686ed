package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const tasksChangedChannel = "study_tasks_changed"

// PostgresCollection implements Collection on the study_tasks table. Live
// subscriptions ride on LISTEN/NOTIFY; every notification triggers a full
// ordered re-query.
type PostgresCollection struct {
	db           *sql.DB
	dsn          string
	log          logrus.FieldLogger
	newID        func() string
	minReconnect time.Duration
	maxReconnect time.Duration
	pingEvery    time.Duration
}

func NewPostgresCollection(db *sql.DB, dsn string, log logrus.FieldLogger) (*PostgresCollection, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostgresCollection{
		db:           db,
		dsn:          dsn,
		log:          log.WithField("component", "postgres_collection"),
		newID:        uuid.NewString,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingEvery:    90 * time.Second,
	}, nil
}

// OpenPostgres connects, verifies the connection and applies migrations.
func OpenPostgres(ctx context.Context, dsn string, log logrus.FieldLogger) (*PostgresCollection, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := MigratePostgresUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	coll, err := NewPostgresCollection(db, dsn, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return coll, nil
}

func (c *PostgresCollection) Close() error {
	return c.db.Close()
}

func (c *PostgresCollection) Add(ctx context.Context, in TaskDocument) (string, error) {
	id := c.newID()
	created := in.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO study_tasks (id, title, start_time, duration, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, in.Title, in.StartTime, in.Duration, in.Completed, created.UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *PostgresCollection) Update(ctx context.Context, id string, patch TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	res, err := c.db.ExecContext(ctx, `UPDATE study_tasks SET completed = $1 WHERE id = $2`, *patch.Completed, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (c *PostgresCollection) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM study_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// List returns every document ordered by start time ascending.
func (c *PostgresCollection) List(ctx context.Context) ([]TaskDocument, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, start_time, duration, completed, created_at
		FROM study_tasks
		ORDER BY start_time ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TaskDocument, 0)
	for rows.Next() {
		var doc TaskDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.StartTime, &doc.Duration, &doc.Completed, &doc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (c *PostgresCollection) Watch(ctx context.Context) (<-chan []TaskDocument, error) {
	listener := pq.NewListener(c.dsn, c.minReconnect, c.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			c.log.WithError(err).WithField("event", int(ev)).Warn("listener event")
		}
	})
	if err := listener.Listen(tasksChangedChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", tasksChangedChannel, err)
	}

	out := make(chan []TaskDocument, 1)
	go func() {
		defer close(out)
		defer listener.Close()

		ping := time.NewTicker(c.pingEvery)
		defer ping.Stop()

		c.publish(ctx, out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				// A nil notification follows a reconnect; re-query either way.
				c.publish(ctx, out)
			case <-ping.C:
				go func() {
					if err := listener.Ping(); err != nil {
						c.log.WithError(err).Debug("listener ping failed")
					}
				}()
			}
		}
	}()
	return out, nil
}

func (c *PostgresCollection) publish(ctx context.Context, out chan<- []TaskDocument) {
	docs, err := c.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.WithError(err).Error("snapshot query failed")
		}
		return
	}
	select {
	case out <- docs:
	case <-ctx.Done():
	}
}
