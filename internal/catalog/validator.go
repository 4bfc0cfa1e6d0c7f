package catalog

import (
	"fmt"
	"time"
	"unicode/utf8"

	"bookcatalog/pkg/models"
)

const (
	maxTitleLen  = 100
	maxAuthorLen = 50
)

// Validator collects the error body the web app's normalizer understands:
// {"FieldErrors": {...}, "Errors": [...]}.
type Validator struct {
	FieldErrors map[string]string `json:"FieldErrors"`
	Errors      []string          `json:"Errors"`
}

func NewValidator() *Validator {
	return &Validator{FieldErrors: map[string]string{}, Errors: []string{}}
}

func (v *Validator) HasErrors() bool {
	return len(v.FieldErrors) > 0 || len(v.Errors) > 0
}

func (v *Validator) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
}

// AddFieldError keeps the first message recorded for a field.
func (v *Validator) AddFieldError(field, msg string) {
	if _, ok := v.FieldErrors[field]; !ok {
		v.FieldErrors[field] = msg
	}
}

func (v *Validator) CheckField(ok bool, field, msg string) {
	if !ok {
		v.AddFieldError(field, msg)
	}
}

func validateNewBook(nb models.NewBook, now time.Time) *Validator {
	v := NewValidator()

	v.CheckField(nb.Title != "", "title", "title is required")
	v.CheckField(utf8.RuneCountInString(nb.Title) <= maxTitleLen, "title", "title must not exceed 100 characters")

	v.CheckField(nb.Author != "", "author", "author is required")
	v.CheckField(utf8.RuneCountInString(nb.Author) <= maxAuthorLen, "author", "author must not exceed 50 characters")

	year := now.Year()
	v.CheckField(nb.Year >= 1, "year", "year must be a positive number")
	v.CheckField(nb.Year <= year, "year", fmt.Sprintf("year cannot be in the future (max %d)", year))

	return v
}

func validateUpdateBook(ub models.UpdateBook, now time.Time) *Validator {
	v := NewValidator()

	if ub.Title != nil {
		v.CheckField(*ub.Title != "", "title", "must be provided")
		v.CheckField(utf8.RuneCountInString(*ub.Title) <= maxTitleLen, "title", "must not be more than 100 characters long")
	}
	if ub.Author != nil {
		v.CheckField(*ub.Author != "", "author", "must be provided")
		v.CheckField(utf8.RuneCountInString(*ub.Author) <= maxAuthorLen, "author", "must not be more than 50 characters long")
	}
	if ub.Year != nil {
		v.CheckField(*ub.Year >= 1, "year", "must be a valid year")
		v.CheckField(*ub.Year <= now.Year(), "year", "must not be in the future")
	}

	return v
}
