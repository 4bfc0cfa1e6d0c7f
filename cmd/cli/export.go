package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bookcatalog/pkg/models"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog to a file",
	}
	cmd.AddCommand(
		newExportFormatCmd(a, "json", "data/books.json", writeJSON),
		newExportFormatCmd(a, "csv", "data/books.csv", writeCSV),
	)
	return cmd
}

func newExportFormatCmd(a *app, format, defaultOut string, write func(string, []models.Book) error) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   format,
		Short: "Export books as " + format,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client().List(cmd.Context())
			if err != nil {
				return report(cmd, err)
			}
			if err := write(out, items); err != nil {
				return fmt.Errorf("write %s: %w", format, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d books to %s\n", len(items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", defaultOut, "output path")
	return cmd
}

func writeJSON(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "title", "author", "year", "date_created", "version"}); err != nil {
		return err
	}
	for _, b := range items {
		if err := writer.Write([]string{
			b.ID,
			b.Title,
			b.Author,
			strconv.Itoa(b.Year),
			b.DateCreated.UTC().Format(time.RFC3339),
			strconv.Itoa(b.Version),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
