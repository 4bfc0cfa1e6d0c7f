package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/toast"
	"bookcatalog/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Page is the data every template receives.
type Page struct {
	Title       string
	CurrentPath string
	Toasts      []toast.Toast

	Books   []models.Book
	Book    *models.Book
	Form    *FormView
	Confirm *ConfirmView
	Error   *ErrorView
}

// FormView is the add/edit modal.
type FormView struct {
	Mode        string // "add" or "edit"
	Action      string
	CancelHref  string
	Values      FormValues
	FieldErrors map[string]string
	FormError   string
}

type ConfirmView struct {
	Action     string
	CancelHref string
	Error      string
}

type ErrorView struct {
	Heading   string
	Message   string
	RetryHref string
}

func addForm() *FormView {
	return &FormView{
		Mode:        "add",
		Action:      "/books",
		CancelHref:  "/books",
		FieldErrors: map[string]string{},
	}
}

func editForm(b *models.Book) *FormView {
	return &FormView{
		Mode:        "edit",
		Action:      "/books/" + b.ID,
		CancelHref:  "/books/" + b.ID,
		Values:      formValuesFrom(b),
		FieldErrors: map[string]string{},
	}
}

func deleteConfirm(b *models.Book) *ConfirmView {
	return &ConfirmView{
		Action:     "/books/" + b.ID + "/delete",
		CancelHref: "/books/" + b.ID,
	}
}

// render fills in the session's toasts and the current path before writing.
func render(c *gin.Context, status int, name string, p Page) {
	if s := sessionFrom(c); s != nil {
		p.Toasts = s.Toasts.Toasts()
	}
	p.CurrentPath = c.Request.URL.RequestURI()
	c.HTML(status, name, p)
}
