package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"bookcatalog/internal/catalog"
	"bookcatalog/pkg/database"
	"bookcatalog/pkg/utils"
)

func main() {
	in := flag.String("in", "data/books.csv", "input CSV path")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := utils.NewLogger(os.Stderr, *level)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbCfg := database.DefaultConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		logger.Error("open input", "err", err)
		os.Exit(1)
	}
	defer f.Close()

	res, err := catalog.ImportCSV(ctx, catalog.NewRepo(db), f)
	if err != nil {
		logger.Error("import failed", "in", *in, "imported", res.Imported, "err", err)
		os.Exit(1)
	}

	for _, r := range res.Rejected {
		logger.Warn("row rejected", "line", r.Line, "errors", formatErrors(r.Errors))
	}
	logger.Info("import finished", "in", *in, "db", dbCfg.Path, "imported", res.Imported, "rejected", len(res.Rejected))
}

func formatErrors(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
