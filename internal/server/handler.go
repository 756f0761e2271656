package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/dgraph-io/graphql-transport-ws/graphqlws"
	"github.com/go-chi/chi/v5"
	"github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookshelf/internal/auth"
	"bookshelf/internal/metrics"
	"bookshelf/internal/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves GraphQL documents on /graphql (subscriptions over graphql-ws WebSockets on
// the same path), database health on /healthz and Prometheus metrics on /metrics.
func Handler(schema *graphql.Schema, contexts *auth.ContextBuilder, db Pinger,
	rr *response.Responder) http.Handler {

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			rr.RespondAndLogCustom(w, r.Context(), fmt.Errorf("database ping failed: %w", err),
				slog.LevelWarn, http.StatusServiceUnavailable)
			return
		}

		rr.SendJson(w, r.Context(), struct {
			Status string `json:"status"`
		}{Status: "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	gh := &graphqlHandler{schema: schema, rr: rr}
	r.With(contexts.Middleware(rr)).Handle("/graphql", graphqlws.NewHandlerFunc(schema, gh))

	return r
}

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphqlHandler struct {
	schema *graphql.Schema
	rr     *response.Responder
}

func (gh *graphqlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, status, err := readRequest(r)
	if err != nil {
		gh.rr.RespondAndLogCustom(w, r.Context(), err, slog.LevelInfo, status)
		return
	}

	start := time.Now()
	resp := gh.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	metrics.GraphQLDuration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if len(resp.Errors) > 0 {
		outcome = "error"
	}
	metrics.GraphQLRequests.WithLabelValues(outcome).Inc()

	gh.rr.SendJson(w, r.Context(), resp)
}

func readRequest(r *http.Request) (*graphqlRequest, int, error) {
	req := &graphqlRequest{}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return nil, http.StatusBadRequest, badRequest("Variables are not a valid JSON object", err)
			}
		}

	case http.MethodPost:
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			return nil, http.StatusUnsupportedMediaType,
				badRequest("Unrecognised Content-Type, use application/json", err)
		}

		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, http.StatusBadRequest, badRequest("Not a valid GraphQL request body", err)
		}

	default:
		return nil, http.StatusMethodNotAllowed,
			badRequest("Method "+r.Method+" is not allowed, use GET or POST", nil)
	}

	if req.Query == "" {
		return nil, http.StatusBadRequest, badRequest("Query is missing", nil)
	}

	return req, 0, nil
}

func badRequest(msg string, err error) *response.Error {
	return &response.Error{Message: msg, Code: response.CodeBadRequest, Err: err}
}
