package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/message"
	"dartdash/internal/refresh"
	"dartdash/internal/transport"
)

type fakeCommander struct {
	err   error
	calls int
}

func (f *fakeCommander) SendCommand(ctx context.Context, req actions.Request) error {
	f.calls++
	return f.err
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) RefreshAll(ctx context.Context) { r.calls++ }

func TestDispatchSuccessRefreshesOnce(t *testing.T) {
	cmd := &fakeCommander{}
	ref := &countingRefresher{}
	center := message.NewCenter(nil)
	out := New(cmd, ref, center).Dispatch(context.Background(), actions.Request{Kind: actions.Restart, Host: "h1", Identity: "p1"})

	assert.True(t, out.OK)
	assert.Equal(t, 1, ref.calls)
	shown, ok := center.Current()
	require.True(t, ok)
	assert.Equal(t, message.TitleDone, shown.Title)
	assert.Equal(t, "Sent restart command to h1 for p1. The process should be restarted soon.", shown.Body)
}

func TestDispatchFailureDoesNotRefresh(t *testing.T) {
	cmd := &fakeCommander{err: &transport.CommandError{Kind: actions.Stop, StatusCode: 409, Message: "locked"}}
	ref := &countingRefresher{}
	center := message.NewCenter(nil)
	out := New(cmd, ref, center).Dispatch(context.Background(), actions.Request{Kind: actions.Stop, Host: "h1", Identity: "p1"})

	assert.False(t, out.OK)
	assert.Zero(t, ref.calls)
	shown, _ := center.Current()
	assert.Equal(t, message.TitleError, shown.Title)
	assert.Equal(t, "Problem encountered when sending command to h1 for p1: locked", shown.Body)
}

func TestDispatchInvalidRequestSkipsBackend(t *testing.T) {
	cmd := &fakeCommander{}
	out := New(cmd, nil, nil).Dispatch(context.Background(), actions.Request{Kind: actions.Start, Host: "h1"})
	assert.False(t, out.OK)
	assert.Zero(t, cmd.calls)
	assert.Contains(t, out.Message.Body, "missing process name")
}

func TestSuccessTemplates(t *testing.T) {
	cases := map[string]actions.Request{
		"Sent stop command to h1 for p1. The process should be stopped soon.":      {Kind: actions.Stop, Host: "h1", Identity: "p1"},
		"Sent start command to h1 for p1. The process should be started soon.":     {Kind: actions.Start, Host: "h1", Identity: "p1"},
		"Sent disable command to h1 for p1. Configurations should be updated soon.": {Kind: actions.Disable, Host: "h1", Identity: "p1"},
		"Sent reread command to h1. Configurations should be updated soon.":        {Kind: actions.Reread, Host: "h1"},
		"Assigned p1 prod to h1. Configurations should be updated soon.":           {Kind: actions.Assign, Host: "h1", Identity: "p1", Environment: "prod"},
		"Unassigned p1 from h1. Configurations should be updated soon.":            {Kind: actions.Unassign, Host: "h1", Identity: "p1"},
	}
	for want, req := range cases {
		assert.Equal(t, want, SuccessText(req))
	}
	assert.True(t, strings.HasSuffix(SuccessText(actions.Request{Kind: actions.Rewrite, Host: "h1"}), "No separate reread is necessary."))
}

func TestFailureTemplates(t *testing.T) {
	assert.Equal(t, "Problem encountered when sending command to h1: boom",
		FailureText(actions.Request{Kind: actions.Rewrite, Host: "h1"}, "boom"))
	assert.Equal(t, "Problem encountered when sending command to h1 for p1 prod: boom",
		FailureText(actions.Request{Kind: actions.Assign, Host: "h1", Identity: "p1", Environment: "prod"}, "boom"))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "locked", Reason(&transport.CommandError{Message: "locked"}))
	assert.Equal(t, "dial tcp: refused", Reason(errors.New("dial tcp: refused")))
}

// backend serves the command endpoint with the given status and body and
// counts table fetches.
type backend struct {
	mu      sync.Mutex
	fetches map[string]int
}

func newBackend(t *testing.T, status int, body string) (*backend, *httptest.Server) {
	b := &backend{fetches: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/action" {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		b.mu.Lock()
		b.fetches[r.URL.Path]++
		b.mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func endToEnd(t *testing.T, status int, body string) (*backend, Outcome) {
	b, srv := newBackend(t, status, body)
	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.Scope.Host = "h1"
	client := transport.NewClient(cfg)
	coordinator := refresh.NewCoordinator(client, cfg.Defaults(), nil)
	center := message.NewCenter(nil)

	out := New(client, coordinator, center).Dispatch(context.Background(), actions.Request{Kind: actions.Start, Host: "h1", Identity: "p1"})
	coordinator.Wait()
	shown, ok := center.Current()
	require.True(t, ok)
	assert.Equal(t, out.Message, shown)
	return b, out
}

func TestEndToEndSuccess(t *testing.T) {
	b, out := endToEnd(t, http.StatusOK, `{}`)
	assert.True(t, out.OK)
	assert.Contains(t, out.Message.Body, "h1")
	assert.Contains(t, out.Message.Body, "p1")
	assert.Equal(t, map[string]int{
		"/api/host/h1/active":   1,
		"/api/host/h1/pending":  1,
		"/api/host/h1/assigned": 1,
	}, b.fetches)
}

func TestEndToEndFailureWithMessage(t *testing.T) {
	b, out := endToEnd(t, http.StatusInternalServerError, `{"message":"locked"}`)
	assert.False(t, out.OK)
	assert.Contains(t, out.Message.Body, "locked")
	assert.Empty(t, b.fetches)
}

func TestEndToEndFailureWithoutMessage(t *testing.T) {
	b, out := endToEnd(t, http.StatusInternalServerError, `{}`)
	assert.False(t, out.OK)
	assert.Contains(t, out.Message.Body, "unknown error")
	assert.Empty(t, b.fetches)
}
