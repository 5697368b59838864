package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/row"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.Scope.Host = "h1"
	return NewClient(cfg)
}

func TestSendCommandPostsForm(t *testing.T) {
	var method, path string
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		method, path, form = r.Method, r.URL.Path, r.PostForm
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.SendCommand(context.Background(), actions.Request{
		Kind: actions.Assign, Host: "h1", Identity: "p1", Environment: "prod",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/action", path)
	assert.Equal(t, "assign", form.Get("action"))
	assert.Equal(t, "h1", form.Get("fqdn"))
	assert.Equal(t, "p1", form.Get("process_name"))
	assert.Equal(t, "prod", form.Get("process_environment"))
}

func TestSendCommandExtractsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code": 500, "message": "locked"}`))
	})

	err := client.SendCommand(context.Background(), actions.Request{Kind: actions.Start, Host: "h1", Identity: "p1"})
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, http.StatusInternalServerError, cmdErr.StatusCode)
	assert.Equal(t, "locked", cmdErr.Message)
}

func TestSendCommandUnknownError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.SendCommand(context.Background(), actions.Request{Kind: actions.Stop, Host: "h1", Identity: "p1"})
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, UnknownError, cmdErr.Message)
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "boom", ExtractMessage([]byte(`{"message":"boom"}`)))
	assert.Equal(t, UnknownError, ExtractMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, UnknownError, ExtractMessage([]byte(`{"message":42}`)))
	assert.Equal(t, UnknownError, ExtractMessage([]byte(`<html>`)))
	assert.Equal(t, UnknownError, ExtractMessage(nil))
}

func TestSuggestEnvironmentCarriesProcess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/processes/autocomplete/environment", r.URL.Path)
		assert.Equal(t, "pr", r.URL.Query().Get("q"))
		assert.Equal(t, "web", r.URL.Query().Get("process"))
		_, _ = w.Write([]byte(`{"results": ["prod", "preprod"]}`))
	})

	results, err := client.Suggest(context.Background(), SuggestionQuery{Kind: SuggestEnvironment, Query: "pr", DependsOn: "web"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "preprod"}, results)
}

func TestSuggestHostOmitsProcess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["process"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`[]`))
	})

	results, err := client.Suggest(context.Background(), SuggestionQuery{Kind: SuggestHost, Query: "h"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSuggestFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Suggest(context.Background(), SuggestionQuery{Kind: SuggestProcess, Query: "p"})
	assert.Error(t, err)
}

func TestFetchRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/host/h1/pending", r.URL.Path)
		_, _ = w.Write([]byte(`[{"name": "p1", "state": "started"}, {"name": "p2"}]`))
	})

	rows, err := client.FetchRows(context.Background(), row.Pending)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "started", rows[0].State)
}
