package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"

	"bookshelf/internal/auth"
	"bookshelf/internal/graph"
	"bookshelf/internal/logger"
	"bookshelf/internal/pubsub"
	"bookshelf/internal/response"
	"bookshelf/internal/server"
	"bookshelf/internal/storage"
	"bookshelf/internal/types"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string) bool {
	if val := strings.ToLower(os.Getenv(key)); val == "yes" || val == "on" || val == "true" {
		return true
	}

	return false
}

var (
	logLevel         = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	dbConnStr        = os.Getenv("DATABASE_URL")
	jwtSecret        = os.Getenv("JWT_SECRET")
	bindAddr         = getEnvOrDefault("BIND_ADDR", ":4000")
	debugMode        = getBoolEnv("DEBUG_MODE")
	loginPassword    = getEnvOrDefault("LOGIN_PASSWORD", "salainen")
	tokenTTL         = getEnvOrDefault("TOKEN_TTL", "0")
	subscriberBuffer = getEnvOrDefault("SUBSCRIBER_BUFFER", strconv.Itoa(pubsub.DefaultBufferSize))
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(logLevel))
	if err != nil {
		lvl = slog.LevelDebug
	}
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)

	if err != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	if jwtSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	if dbConnStr == "" {
		slog.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	ttl, err := time.ParseDuration(tokenTTL)
	if err != nil || ttl < 0 {
		slog.Error("Invalid TOKEN_TTL, a non-negative duration like 24h expected")
		os.Exit(1)
	}

	bufferSize, err := strconv.Atoi(subscriberBuffer)
	if err != nil || bufferSize < 1 {
		slog.Error("Invalid SUBSCRIBER_BUFFER, a positive integer expected")
		os.Exit(1)
	}

	st, err := storage.Open(context.Background(), dbConnStr, slog.Default())
	if err != nil {
		slog.Error("Failed to open DATABASE_URL: " + err.Error())
		os.Exit(1)
	}
	defer st.Close()

	prepareDatabase(st)

	rr := &response.Responder{DebugMode: debugMode}
	tokens := auth.NewTokens(jwtSecret, ttl)

	schema, err := graph.NewSchema(&graph.Resolver{
		Authors:       st.Authors,
		Books:         st.Books,
		Users:         st.Users,
		Tokens:        tokens,
		Events:        pubsub.New[types.BookAdded](bufferSize, slog.Default()),
		LoginPassword: loginPassword,
		Responder:     rr,
		Logger:        slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to parse GraphQL schema: " + err.Error())
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Mount("/", server.Handler(schema,
		&auth.ContextBuilder{Tokens: tokens, Users: st.Users},
		st, rr,
	))

	slog.Info("Server ready", slog.String("addr", bindAddr), slog.String("backend", string(st.Backend)))
	err = http.ListenAndServe(bindAddr, r)
	slog.Error("aborting: " + err.Error())
	if err := st.Close(); err != nil {
		slog.Error("Failed to close storage: " + err.Error())
	}
	os.Exit(1)
}

// prepareDatabase only logs failures so that the server still comes up without a database
func prepareDatabase(st *storage.Storage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.Ping(ctx); err != nil {
		slog.Error("Error connecting to database: " + err.Error())
		return
	}
	slog.Info("Connected to database", slog.String("backend", string(st.Backend)))

	if err := st.Migrate(ctx); err != nil {
		slog.Error(err.Error())
	}
}
