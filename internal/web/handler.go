// Package web serves the catalog's HTML pages: the book list and detail
// views, the add/edit modal, delete confirmation and the toast viewport.
// Every interaction is a plain form post followed by a redirect, so the
// pages work without JavaScript; the toast script only adds live updates.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/apierror"
	"bookcatalog/internal/books"
	"bookcatalog/internal/toast"
	"bookcatalog/pkg/models"
)

const (
	msgAdded   = "Book added"
	msgUpdated = "Book updated"
	msgDeleted = "Book deleted"
)

// BookService is implemented by *books.Client.
type BookService interface {
	List(ctx context.Context) ([]models.Book, error)
	Get(ctx context.Context, id string) (*models.Book, error)
	Create(ctx context.Context, nb models.NewBook) (*models.Book, error)
	Update(ctx context.Context, id string, ub models.UpdateBook) (*models.Book, error)
	Delete(ctx context.Context, id string) error
}

var _ BookService = (*books.Client)(nil)

type Handler struct {
	Books      BookService
	Sessions   *toast.Sessions
	Normalizer *apierror.Normalizer
	Logger     *slog.Logger
}

func NewHandler(svc BookService, sessions *toast.Sessions, n *apierror.Normalizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Books:      svc,
		Sessions:   sessions,
		Normalizer: n,
		Logger:     logger.With("component", "web"),
	}
}

// Install registers the templates, static assets, pages and the toast socket
// on r, along with the "Page not found" fallback.
func (h *Handler) Install(r *gin.Engine) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", staticFiles())

	r.GET("/ws/toasts", toast.WSHandler(h.Sessions))

	pages := r.Group("/", SessionMiddleware(h.Sessions))
	h.RegisterRoutes(pages)

	r.NoRoute(SessionMiddleware(h.Sessions), h.notFound)
	return nil
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/books") })
	rg.GET("/books", h.list)
	rg.POST("/books", h.create)
	rg.GET("/books/:id", h.detail)
	rg.POST("/books/:id", h.update)
	rg.POST("/books/:id/delete", h.delete)
	rg.POST("/toasts/:id/dismiss", h.dismissToast)
}

func (h *Handler) list(c *gin.Context) {
	var form *FormView
	if c.Query("modal") == "new" {
		form = addForm()
	}
	h.renderList(c, http.StatusOK, form)
}

// renderList shows the list with an optional open modal. A failed load shows
// the error view unless a modal has to stay open, in which case the list is
// left empty.
func (h *Handler) renderList(c *gin.Context, status int, form *FormView) {
	items, err := h.Books.List(c.Request.Context())
	if err != nil {
		h.Logger.Warn("load books", "err", err)
		if form == nil {
			h.loadError(c, "Can't load books", "/books", err)
			return
		}
		items = nil
	}
	render(c, status, "list.html", Page{Title: "Books", Books: items, Form: form})
}

func (h *Handler) detail(c *gin.Context) {
	b, ok := h.loadBook(c)
	if !ok {
		return
	}

	p := Page{Title: b.Title, Book: b}
	switch {
	case c.Query("modal") == "edit":
		p.Form = editForm(b)
	case c.Query("confirm") == "delete":
		p.Confirm = deleteConfirm(b)
	}
	render(c, http.StatusOK, "detail.html", p)
}

// loadBook fetches the path's book, rendering the not-found or error view
// itself when that fails.
func (h *Handler) loadBook(c *gin.Context) (*models.Book, bool) {
	id := c.Param("id")
	b, err := h.Books.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			render(c, http.StatusNotFound, "book_not_found.html", Page{Title: "Book not found"})
			return nil, false
		}
		h.Logger.Warn("load book", "id", id, "err", err)
		h.loadError(c, "Can't load book", "/books/"+url.PathEscape(id), err)
		return nil, false
	}
	return b, true
}

func (h *Handler) create(c *gin.Context) {
	values := bindForm(c)
	form := addForm()
	form.Values = values

	nb, fieldErrs := values.newBook()
	if fieldErrs != nil {
		form.FieldErrors = fieldErrs
		h.renderList(c, http.StatusUnprocessableEntity, form)
		return
	}

	if _, err := h.Books.Create(c.Request.Context(), nb); err != nil {
		status := h.applyFailure(c, form, err)
		h.renderList(c, status, form)
		return
	}

	h.toasts(c).Success(msgAdded, 0)
	c.Redirect(http.StatusSeeOther, "/books")
}

func (h *Handler) update(c *gin.Context) {
	b, ok := h.loadBook(c)
	if !ok {
		return
	}
	values := bindForm(c)
	form := editForm(b)
	form.Values = values

	ub, fieldErrs := values.changes(b)
	if fieldErrs != nil {
		form.FieldErrors = fieldErrs
		render(c, http.StatusUnprocessableEntity, "detail.html", Page{Title: b.Title, Book: b, Form: form})
		return
	}
	if ub.Empty() {
		c.Redirect(http.StatusSeeOther, "/books/"+b.ID)
		return
	}

	if _, err := h.Books.Update(c.Request.Context(), b.ID, ub); err != nil {
		status := h.applyFailure(c, form, err)
		render(c, status, "detail.html", Page{Title: b.Title, Book: b, Form: form})
		return
	}

	h.toasts(c).Success(msgUpdated, 0)
	c.Redirect(http.StatusSeeOther, "/books/"+b.ID)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	err := h.Books.Delete(c.Request.Context(), id)
	if err == nil {
		h.toasts(c).Success(msgDeleted, 0)
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	parsed := h.Normalizer.ParseError(err)
	msg := parsed.Message(fmt.Sprintf("Delete failed (%s)", statusText(err)))
	if isTransport(err) {
		h.toasts(c).Error(msg, 0)
	}
	h.Logger.Warn("delete book", "id", id, "err", err)

	b, ok := h.loadBook(c)
	if !ok {
		return
	}
	confirm := deleteConfirm(b)
	confirm.Error = msg
	render(c, http.StatusOK, "detail.html", Page{Title: b.Title, Book: b, Confirm: confirm})
}

// applyFailure copies the normalized error into the form, raises a toast for
// transport failures and returns the status to render with.
func (h *Handler) applyFailure(c *gin.Context, form *FormView, err error) int {
	parsed := h.Normalizer.ParseError(err)
	form.FieldErrors = parsed.FieldErrors
	form.FormError = parsed.Message("")
	h.Logger.Warn("book mutation failed", "mode", form.Mode, "err", err)

	if isTransport(err) {
		h.toasts(c).Error(parsed.Message(apierror.MsgNetwork), 0)
	}
	if len(parsed.FieldErrors) > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func (h *Handler) dismissToast(c *gin.Context) {
	h.toasts(c).Dismiss(c.Param("id"))
	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return")))
}

func (h *Handler) notFound(c *gin.Context) {
	render(c, http.StatusNotFound, "not_found.html", Page{Title: "Page not found"})
}

func (h *Handler) loadError(c *gin.Context, heading, retry string, err error) {
	msg := h.Normalizer.ParseError(err).Message("Unknown error")
	render(c, http.StatusBadGateway, "load_error.html", Page{
		Title: heading,
		Error: &ErrorView{Heading: heading, Message: msg, RetryHref: retry},
	})
}

func (h *Handler) toasts(c *gin.Context) *toast.Manager {
	if s := sessionFrom(c); s != nil {
		return s.Toasts
	}
	// outside the session middleware; a closed manager drops everything
	m := toast.New()
	m.Close()
	return m
}

func isTransport(err error) bool {
	var tf *apierror.TransportFailure
	return errors.As(err, &tf)
}

func statusText(err error) string {
	var hf *apierror.HTTPFailure
	if errors.As(err, &hf) {
		return fmt.Sprint(hf.Status)
	}
	return "network"
}

// safeReturn only allows local paths as redirect targets.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/books"
	}
	return p
}
