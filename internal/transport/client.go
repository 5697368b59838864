// Package transport talks to the dashboard API: lifecycle commands,
// autocomplete suggestions and the three table datasets.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"

	"dartdash/internal/actions"
	"dartdash/internal/config"
	"dartdash/internal/row"
)

// UnknownError is reported when a failed response carries no message.
const UnknownError = "unknown error"

// errorField is the JSON field failed responses carry their reason in.
const errorField = "message"

// CommandError is a command the backend refused or never answered.
type CommandError struct {
	Kind       actions.Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *CommandError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Kind, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// SuggestionKind selects the autocomplete source.
type SuggestionKind int

const (
	SuggestHost SuggestionKind = iota
	SuggestProcess
	SuggestEnvironment
)

func (k SuggestionKind) String() string {
	switch k {
	case SuggestHost:
		return "host"
	case SuggestProcess:
		return "process"
	case SuggestEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("suggestion(%d)", int(k))
	}
}

// SuggestionQuery is one autocomplete lookup. DependsOn carries the
// already chosen process for environment lookups.
type SuggestionQuery struct {
	Kind      SuggestionKind
	Query     string
	DependsOn string
}

// Client is the HTTP client for the dashboard API.
type Client struct {
	cfg  config.Config
	http *resty.Client
}

// NewClient creates a client for cfg.
func NewClient(cfg config.Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json")
	return &Client{cfg: cfg, http: c}
}

// SendCommand issues one lifecycle command. A nil error means the backend
// answered 2xx; the body is ignored in that case.
func (c *Client) SendCommand(ctx context.Context, req actions.Request) error {
	endpoint := c.cfg.CommandEndpoint(req.Kind)
	form := map[string]string{
		"action": string(req.Kind),
		"fqdn":   req.Host,
	}
	if req.Identity != "" {
		form["process_name"] = req.Identity
	}
	if req.Environment != "" {
		form["process_environment"] = req.Environment
	}
	glog.V(2).Infof("command %s fqdn=%s process=%s environment=%s -> %s", req.Kind, req.Host, req.Identity, req.Environment, endpoint)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(endpoint)
	if err != nil {
		return &CommandError{Kind: req.Kind, Message: err.Error(), Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}
	return &CommandError{
		Kind:       req.Kind,
		StatusCode: resp.StatusCode(),
		Message:    ExtractMessage(resp.Body()),
	}
}

// ExtractMessage pulls the failure reason out of a response body, falling
// back to UnknownError when the body has none.
func ExtractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return UnknownError
	}
	message, ok := payload[errorField].(string)
	if !ok || strings.TrimSpace(message) == "" {
		return UnknownError
	}
	return message
}

type suggestionResponse struct {
	Results []string `json:"results"`
}

// Suggest runs one autocomplete lookup.
func (c *Client) Suggest(ctx context.Context, q SuggestionQuery) ([]string, error) {
	var endpoint string
	params := map[string]string{"q": q.Query}
	switch q.Kind {
	case SuggestHost:
		endpoint = c.cfg.Suggest.Host
	case SuggestProcess:
		endpoint = c.cfg.Suggest.Process
	case SuggestEnvironment:
		endpoint = c.cfg.Suggest.Environment
		params["process"] = q.DependsOn
	default:
		return nil, fmt.Errorf("unknown suggestion kind %d", int(q.Kind))
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s suggestions: %w", q.Kind, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%s suggestions: unexpected status %d", q.Kind, resp.StatusCode())
	}
	var payload suggestionResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		// the API answers a bare [] when its own lookup fails
		var bare []string
		if errBare := json.Unmarshal(resp.Body(), &bare); errBare != nil {
			return nil, fmt.Errorf("%s suggestions: decode: %w", q.Kind, err)
		}
		return bare, nil
	}
	return payload.Results, nil
}

// FetchRows fetches the dataset behind one table.
func (c *Client) FetchRows(ctx context.Context, table row.Context) ([]row.Raw, error) {
	endpoint, err := c.cfg.TableEndpoint(table)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s table: %w", table, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s table: %s", table, ExtractMessage(resp.Body()))
	}
	var rows []row.Raw
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("fetch %s table: decode: %w", table, err)
	}
	return rows, nil
}
