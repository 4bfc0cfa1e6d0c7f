package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookcatalog/internal/apierror"
	"bookcatalog/internal/books"
	"bookcatalog/pkg/utils"
)

const defaultBaseURL = "http://localhost:3000/api"

type app struct {
	baseURL  string
	timeout  time.Duration
	logLevel string
}

func (a *app) client() *books.Client {
	hc := books.NewHTTPClient(utils.NewLogger(os.Stderr, a.logLevel))
	hc.Timeout = a.timeout
	return books.NewClient(a.baseURL, hc)
}

// reportedError marks an error that has already been printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var r reportedError
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bookcatalog",
		Short:         "Command-line client for the book catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.baseURL, "api", defaultBaseURL, "books API base URL (the web app's /api proxy or the catalog API)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 15*time.Second, "request timeout")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "request log level")

	root.AddCommand(newBooksCmd(a), newExportCmd(a), newToastsCmd(a))
	return root
}

// report prints err the way the web app would show it: the form-level
// message followed by any field errors.
func report(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	w := cmd.ErrOrStderr()
	if errors.Is(err, books.ErrNotFound) {
		fmt.Fprintln(w, "error: book not found")
		return reportedError{err}
	}
	parsed := apierror.NewNormalizer(nil).ParseError(err)
	def := "request failed"
	if len(parsed.FieldErrors) > 0 {
		def = "invalid input"
	}
	fmt.Fprintf(w, "error: %s\n", parsed.Message(def))
	keys := make([]string, 0, len(parsed.FieldErrors))
	for k := range parsed.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, parsed.FieldErrors[k])
	}
	return reportedError{err}
}
