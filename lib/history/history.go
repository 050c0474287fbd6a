// Package history keeps a ledger of the saved screenshots in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	// register the pure go "sqlite" driver
	_ "modernc.org/sqlite"
)

// Schema of the captures table
const Schema = `
CREATE TABLE IF NOT EXISTS captures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL DEFAULT '',
	x REAL NOT NULL,
	y REAL NOT NULL,
	width REAL NOT NULL,
	height REAL NOT NULL,
	frames INTEGER NOT NULL,
	size INTEGER NOT NULL,
	created INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_created ON captures(created);
`

// ErrNotFound is returned by Get when no capture has the name
var ErrNotFound = errors.New("history: capture not found")

// Capture is one saved screenshot
type Capture struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`

	// The selection in device pixels of the document
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Frames  int       `json:"frames"`
	Size    int       `json:"size"`
	Created time.Time `json:"created"`
}

// History ledger
type History struct {
	db *sql.DB
}

// Open the ledger at the path, use ":memory:" for a temporary one
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// each connection of ":memory:" is a different database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

// Record a capture, the ID and Created are set if they are empty
func (h *History) Record(ctx context.Context, c *Capture) error {
	if c.Created.IsZero() {
		c.Created = time.Now()
	}

	res, err := h.db.ExecContext(ctx,
		`INSERT INTO captures (name, url, x, y, width, height, frames, size, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.URL, c.X, c.Y, c.Width, c.Height, c.Frames, c.Size, c.Created.UnixMilli(),
	)
	if err != nil {
		return err
	}

	c.ID, err = res.LastInsertId()
	return err
}

// List the latest captures, newest first. If limit <= 0 all of them are returned.
func (h *History) List(ctx context.Context, limit int) ([]*Capture, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, name, url, x, y, width, height, frames, size, created
		FROM captures ORDER BY created DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	list := []*Capture{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Get the capture by its file name
func (h *History) Get(ctx context.Context, name string) (*Capture, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT id, name, url, x, y, width, height, frames, size, created
		FROM captures WHERE name = ?`, name)

	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Close the database
func (h *History) Close() error {
	return h.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (*Capture, error) {
	c := &Capture{}
	var created int64
	err := s.Scan(&c.ID, &c.Name, &c.URL, &c.X, &c.Y, &c.Width, &c.Height, &c.Frames, &c.Size, &created)
	if err != nil {
		return nil, err
	}
	c.Created = time.UnixMilli(created)
	return c, nil
}
