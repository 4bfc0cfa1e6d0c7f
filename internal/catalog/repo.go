package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookcatalog/pkg/models"
)

// ErrNotFound is returned by Update and Delete when no row matched, which
// includes an update that lost a version race.
var ErrNotFound = errors.New("book not found")

type Repo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, now: time.Now}
}

const bookColumns = `id, title, author, year, date_created, date_updated, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (models.Book, error) {
	var (
		b                models.Book
		created, updated int64
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &created, &updated, &b.Version); err != nil {
		return models.Book{}, err
	}
	b.DateCreated = time.Unix(0, created).UTC()
	b.DateUpdated = time.Unix(0, updated).UTC()
	return b, nil
}

func (r *Repo) Create(ctx context.Context, nb models.NewBook) (*models.Book, error) {
	now := r.now().UTC()
	b := models.Book{
		ID:          uuid.NewString(),
		Title:       nb.Title,
		Author:      nb.Author,
		Year:        nb.Year,
		DateCreated: now,
		DateUpdated: now,
		Version:     1,
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Title, b.Author, b.Year, now.UnixNano(), now.UnixNano(), b.Version)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return &b, nil
}

// Upsert inserts b under its own id, or overwrites the fields of the stored
// book and bumps its version. Missing timestamps default to now.
func (r *Repo) Upsert(ctx context.Context, b models.Book) error {
	now := r.now().UTC()
	if b.DateCreated.IsZero() {
		b.DateCreated = now
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  author = excluded.author,
		  year = excluded.year,
		  date_updated = excluded.date_updated,
		  version = books.version + 1
	`, b.ID, b.Title, b.Author, b.Year, b.DateCreated.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID, err)
	}
	return nil
}

// List returns every book, newest first.
func (r *Repo) List(ctx context.Context) ([]models.Book, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY date_created DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetByID returns nil, nil when the book does not exist.
func (r *Repo) GetByID(ctx context.Context, id string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &b, nil
}

// Update applies ub to b and persists it only if the stored version still
// matches b.Version. On success b holds the new state.
func (r *Repo) Update(ctx context.Context, b *models.Book, ub models.UpdateBook) error {
	next := *b
	if ub.Title != nil {
		next.Title = *ub.Title
	}
	if ub.Author != nil {
		next.Author = *ub.Author
	}
	if ub.Year != nil {
		next.Year = *ub.Year
	}
	next.DateUpdated = r.now().UTC()
	next.Version++

	res, err := r.DB.ExecContext(ctx, `
		UPDATE books
		SET title = ?, author = ?, year = ?, date_updated = ?, version = ?
		WHERE id = ? AND version = ?
	`, next.Title, next.Author, next.Year, next.DateUpdated.UnixNano(), next.Version, next.ID, b.Version)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	*b = next
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count is used by the status endpoint.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return n, nil
}
