package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookcatalog/pkg/models"
)

// ImportResult counts what ImportCSV did. Rejected rows keep their 1-based
// line number and the validation messages.
type ImportResult struct {
	Imported int
	Rejected []RejectedRow
}

type RejectedRow struct {
	Line   int
	Errors map[string]string
}

// ImportCSV reads books in the layout written by the CLI export (id, title,
// author, year, date_created; other columns are ignored) and upserts every
// row that passes the create validation. Ids are stored in canonical uuid
// form; rows without an id get a new one.
func ImportCSV(ctx context.Context, repo *Repo, in io.Reader) (ImportResult, error) {
	var res ImportResult

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	if _, ok := header["title"]; !ok {
		return res, errors.New("csv header has no title column")
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		year, _ := strconv.Atoi(valueAt(header, row, "year"))
		nb := models.NewBook{
			Title:  valueAt(header, row, "title"),
			Author: valueAt(header, row, "author"),
			Year:   year,
		}
		if v := validateNewBook(nb, repo.now()); v.HasErrors() {
			res.Rejected = append(res.Rejected, RejectedRow{Line: line, Errors: v.FieldErrors})
			continue
		}

		id := uuid.New()
		if raw := valueAt(header, row, "id"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				res.Rejected = append(res.Rejected, RejectedRow{Line: line, Errors: map[string]string{"id": "must be a valid uuid"}})
				continue
			}
			id = parsed
		}

		b := models.Book{
			ID:     id.String(),
			Title:  nb.Title,
			Author: nb.Author,
			Year:   nb.Year,
		}
		if raw := valueAt(header, row, "date_created"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return res, fmt.Errorf("line %d: parse date_created: %w", line, err)
			}
			b.DateCreated = t
		}

		if err := repo.Upsert(ctx, b); err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.Imported++
	}
	return res, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
