package web

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookcatalog/pkg/models"
)

const msgNotANumber = "must be a number"

// FormValues holds the modal's inputs exactly as typed.
type FormValues struct {
	Title  string
	Author string
	Year   string
}

func formValuesFrom(b *models.Book) FormValues {
	return FormValues{Title: b.Title, Author: b.Author, Year: strconv.Itoa(b.Year)}
}

func bindForm(c *gin.Context) FormValues {
	return FormValues{
		Title:  c.PostForm("title"),
		Author: c.PostForm("author"),
		Year:   c.PostForm("year"),
	}
}

// year parses the year input. Anything but an integer is a field error and
// the API is never called.
func (v FormValues) year() (int, map[string]string) {
	n, err := strconv.Atoi(strings.TrimSpace(v.Year))
	if err != nil {
		return 0, map[string]string{"year": msgNotANumber}
	}
	return n, nil
}

func (v FormValues) newBook() (models.NewBook, map[string]string) {
	year, fieldErrs := v.year()
	if fieldErrs != nil {
		return models.NewBook{}, fieldErrs
	}
	return models.NewBook{Title: v.Title, Author: v.Author, Year: year}, nil
}

// changes returns an update carrying only the fields that differ from b.
func (v FormValues) changes(b *models.Book) (models.UpdateBook, map[string]string) {
	year, fieldErrs := v.year()
	if fieldErrs != nil {
		return models.UpdateBook{}, fieldErrs
	}

	var ub models.UpdateBook
	if v.Title != b.Title {
		title := v.Title
		ub.Title = &title
	}
	if v.Author != b.Author {
		author := v.Author
		ub.Author = &author
	}
	if year != b.Year {
		ub.Year = &year
	}
	return ub, nil
}
