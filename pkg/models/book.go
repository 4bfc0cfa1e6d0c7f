package models

import "time"

// Book is the catalog record as served by the books API.
//
// Version is bumped by the API on every successful update and is used there
// for optimistic concurrency; the web app only displays it.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        int       `json:"year"`
	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`
	Version     int       `json:"version"`
}

// NewBook is the payload for creating a book.
type NewBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
}

// UpdateBook is a partial update; nil fields are left untouched.
type UpdateBook struct {
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	Year   *int    `json:"year,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u UpdateBook) Empty() bool {
	return u.Title == nil && u.Author == nil && u.Year == nil
}
