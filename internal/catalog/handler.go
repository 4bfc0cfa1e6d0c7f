// Package catalog is the reference books API used for local development and
// end-to-end tests of the web app. Error bodies use the shapes the web app
// normalizes: {"Error": "..."} and {"FieldErrors": {...}, "Errors": [...]}.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookcatalog/pkg/models"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Repo   *Repo
	Logger *slog.Logger
	now    func() time.Time
}

func NewHandler(repo *Repo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Logger: logger.With("component", "catalog"), now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.status)
	rg.GET("/books", h.list)
	rg.POST("/books", h.create)
	rg.GET("/books/:id", h.getByID)
	rg.PUT("/books/:id", h.update)
	rg.DELETE("/books/:id", h.delete)
}

// NewRouter wires the handler into an engine whose unmatched routes also
// answer with JSON error bodies.
func NewRouter(h *Handler, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware...)
	r.NoRoute(notFound)
	r.NoMethod(func(c *gin.Context) {
		errorMessage(c, http.StatusMethodNotAllowed,
			fmt.Sprintf("the %s method is not supported for this resource", c.Request.Method))
	})
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

func (h *Handler) status(c *gin.Context) {
	n, err := h.Repo.Count(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"Status": "OK", "books": n})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) create(c *gin.Context) {
	var input models.NewBook
	if err := decodeJSON(c, &input); err != nil {
		badRequest(c, err)
		return
	}

	if v := validateNewBook(input, h.now()); v.HasErrors() {
		c.JSON(http.StatusUnprocessableEntity, v)
		return
	}

	b, err := h.Repo.Create(c.Request.Context(), input)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.Logger.Info("book created", "id", b.ID)
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	b, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if b == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}

	var input models.UpdateBook
	if err := decodeJSON(c, &input); err != nil {
		badRequest(c, err)
		return
	}
	if v := validateUpdateBook(input, h.now()); v.HasErrors() {
		c.JSON(http.StatusUnprocessableEntity, v)
		return
	}

	b, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if b == nil {
		notFound(c)
		return
	}

	if err := h.Repo.Update(c.Request.Context(), b, input); err != nil {
		if errors.Is(err, ErrNotFound) {
			notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	h.Logger.Info("book updated", "id", b.ID, "version", b.Version)
	c.JSON(http.StatusOK, b)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}
	h.Logger.Info("book deleted", "id", id)
	c.Status(http.StatusNoContent)
}

// bookID writes a 400 and reports false when the path id is not a UUID.
func bookID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, errors.New("invalid id parameter"))
		return "", false
	}
	return id.String(), true
}

func errorMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"Error": msg})
}

func notFound(c *gin.Context) {
	errorMessage(c, http.StatusNotFound, "the requested resource could not be found")
}

func badRequest(c *gin.Context, err error) {
	errorMessage(c, http.StatusBadRequest, err.Error())
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.Logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	errorMessage(c, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func decodeJSON(c *gin.Context, dst any) error {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr    *json.SyntaxError
			typeErr      *json.UnmarshalTypeError
			maxBytesErr  *http.MaxBytesError
			invalidUnmar *json.InvalidUnmarshalError
		)
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", field)
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
		case errors.As(err, &invalidUnmar):
			panic(err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
