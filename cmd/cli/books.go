package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bookcatalog/pkg/models"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, show, add, edit and delete books",
	}
	cmd.AddCommand(
		newBooksListCmd(a),
		newBooksShowCmd(a),
		newBooksAddCmd(a),
		newBooksEditCmd(a),
		newBooksDeleteCmd(a),
	)
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client().List(cmd.Context())
			if err != nil {
				return report(cmd, err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printTable(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newBooksShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.client().Get(cmd.Context(), args[0])
			if err != nil {
				return report(cmd, err)
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
}

func newBooksAddCmd(a *app) *cobra.Command {
	var nb models.NewBook
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.client().Create(cmd.Context(), nb)
			if err != nil {
				return report(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book added: %s\n", b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&nb.Title, "title", "", "title")
	cmd.Flags().StringVar(&nb.Author, "author", "", "author")
	cmd.Flags().IntVar(&nb.Year, "year", 0, "publication year")
	return cmd
}

func newBooksEditCmd(a *app) *cobra.Command {
	var (
		title, author string
		year          int
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the given fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ub models.UpdateBook
			flags := cmd.Flags()
			if flags.Changed("title") {
				ub.Title = &title
			}
			if flags.Changed("author") {
				ub.Author = &author
			}
			if flags.Changed("year") {
				ub.Year = &year
			}
			if ub.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to change")
				return nil
			}

			b, err := a.client().Update(cmd.Context(), args[0], ub)
			if err != nil {
				return report(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book updated: %s (version %d)\n", b.ID, b.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&author, "author", "", "new author")
	cmd.Flags().IntVar(&year, "year", 0, "new publication year")
	return cmd
}

func newBooksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Delete(cmd.Context(), args[0]); err != nil {
				return report(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book deleted")
			return nil
		},
	}
}

func printTable(w io.Writer, items []models.Book) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR")
	for _, b := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", b.ID, b.Title, b.Author, b.Year)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d books\n", len(items))
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
