package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/auth"
	"bookshelf/internal/graph"
	"bookshelf/internal/response"
	"bookshelf/internal/server"
	"bookshelf/internal/storage"
)

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func setup(t *testing.T) (http.Handler, *storage.Storage) {
	ctx := context.Background()

	st, err := storage.Open(ctx, "sqlite://:memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	tokens := auth.NewTokens("secret", 0)
	rr := &response.Responder{}

	schema, err := graph.NewSchema(&graph.Resolver{
		Authors:       st.Authors,
		Books:         st.Books,
		Users:         st.Users,
		Tokens:        tokens,
		LoginPassword: "salainen",
		Responder:     rr,
	})
	require.NoError(t, err)

	return server.Handler(schema, &auth.ContextBuilder{Tokens: tokens, Users: st.Users}, st, rr), st
}

func post(t *testing.T, h http.Handler, token, query string, variables map[string]any) (int, gqlResponse) {
	t.Helper()

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())

	return w.Code, resp
}

func TestGraphQL(t *testing.T) {
	t.Run("post", func(t *testing.T) {
		h, _ := setup(t)

		code, resp := post(t, h, "", `{ bookCount authorCount }`, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"bookCount":0,"authorCount":0}`, string(resp.Data))
	})

	t.Run("get", func(t *testing.T) {
		h, _ := setup(t)

		q := url.Values{}
		q.Set("query", `query($g: String) { allBooks(genre: $g) { title } }`)
		q.Set("variables", `{"g":"crime"}`)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"allBooks":[]}}`, w.Body.String())
	})

	t.Run("login then add book", func(t *testing.T) {
		h, _ := setup(t)

		_, resp := post(t, h, "", `mutation { createUser(username: "mluukkai", favoriteGenre: "refactoring") { id } }`, nil)
		require.Empty(t, resp.Errors)

		_, resp = post(t, h, "", `mutation($u: String!, $p: String!) { login(username: $u, password: $p) { value } }`,
			map[string]any{"u": "mluukkai", "p": "salainen"})
		require.Empty(t, resp.Errors)

		var login struct{ Login struct{ Value string } }
		require.NoError(t, json.Unmarshal(resp.Data, &login))
		require.NotEmpty(t, login.Login.Value)

		_, resp = post(t, h, login.Login.Value, `{ me { username favoriteGenre } }`, nil)
		assert.JSONEq(t, `{"me":{"username":"mluukkai","favoriteGenre":"refactoring"}}`, string(resp.Data))

		_, resp = post(t, h, login.Login.Value,
			`mutation { addBook(title: "Refactoring", author: "Martin Fowler", genres: ["refactoring"]) { title author { name } } }`, nil)
		require.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"addBook":{"title":"Refactoring","author":{"name":"Martin Fowler"}}}`, string(resp.Data))

		_, resp = post(t, h, "", `{ bookCount authorCount }`, nil)
		assert.JSONEq(t, `{"bookCount":1,"authorCount":1}`, string(resp.Data))
	})

	t.Run("invalid token", func(t *testing.T) {
		h, _ := setup(t)

		code, resp := post(t, h, "forged", `{ me { username } }`, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, response.CodeUnauthenticated, resp.Errors[0].Extensions["code"])
	})

	for _, tc := range []struct {
		name        string
		method      string
		contentType string
		body        string
		status      int
	}{
		{name: "broken body", method: http.MethodPost, contentType: "application/json", body: `{"query":`, status: http.StatusBadRequest},
		{name: "missing query", method: http.MethodPost, contentType: "application/json", body: `{}`, status: http.StatusBadRequest},
		{name: "form body", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", body: `query=x`, status: http.StatusUnsupportedMediaType},
		{name: "put", method: http.MethodPut, contentType: "application/json", body: `{"query":"{ bookCount }"}`, status: http.StatusMethodNotAllowed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := setup(t)

			req := httptest.NewRequest(tc.method, "/graphql", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)

			var resp gqlResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, response.CodeBadRequest, resp.Errors[0].Extensions["code"])
		})
	}
}

func TestHealthz(t *testing.T) {
	h, st := setup(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.NoError(t, st.Close())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), response.CodeInternal)
}

func TestMetrics(t *testing.T) {
	h, _ := setup(t)
	post(t, h, "", `{ bookCount }`, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookshelf_graphql_requests_total")
}
