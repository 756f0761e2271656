package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/joho/godotenv/autoload"

	"bookshelf/internal/importer"
	"bookshelf/internal/library"
	"bookshelf/internal/logger"
	"bookshelf/internal/storage"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

var (
	feedUrl   = os.Getenv("FEED_URL")
	maxPages  = getEnvOrDefault("FEED_MAX_PAGES", "0")
	logLevel  = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	dbConnStr = os.Getenv("DATABASE_URL")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	invalidLvl := false
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelDebug
		invalidLvl = true
	}
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), nil)

	if invalidLvl {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	if feedUrl == "" {
		slog.Error("You need to specify FEED_URL env var")
		os.Exit(1)
	}

	feed, err := url.Parse(feedUrl)
	if err != nil {
		slog.Error("Invalid URL in FEED_URL: " + err.Error())
		os.Exit(1)
	}

	pages, err := strconv.Atoi(maxPages)
	if err != nil || pages < 0 {
		slog.Error("Invalid FEED_MAX_PAGES, a non-negative integer expected")
		os.Exit(1)
	}

	if dbConnStr == "" {
		slog.Error("You need to specify DATABASE_URL env var")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := storage.Open(ctx, dbConnStr, slog.Default())
	if err != nil {
		slog.Error("Failed to open DATABASE_URL: " + err.Error())
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	im := importer.Importer{
		Client:   &http.Client{Timeout: time.Minute},
		Logger:   slog.Default(),
		Library:  &library.Library{Authors: st.Authors, Books: st.Books},
		MaxPages: pages,
	}

	stats, err := im.Import(ctx, feed)
	if err != nil {
		slog.Error("Import failed: "+err.Error(), slog.Int("imported", stats.Imported))
		os.Exit(1)
	}

	slog.Info("Import finished",
		slog.Int("pages", stats.Pages),
		slog.Int("imported", stats.Imported),
		slog.Int("existing", stats.Existing),
		slog.Int("skipped", stats.Skipped),
	)
}
