// Package row holds the process row model shared by the three dashboard
// tables. Rows arrive from the backend with optional fields; they are
// resolved exactly once against the page-level defaults into a fully
// populated Row value before anything renders or dispatches from them.
package row

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Context identifies which of the three disjoint tables a row belongs to.
type Context int

const (
	Active Context = iota
	Pending
	Assigned
)

// Contexts lists the table contexts in display order.
var Contexts = []Context{Active, Pending, Assigned}

func (c Context) String() string {
	switch c {
	case Active:
		return "active"
	case Pending:
		return "pending"
	case Assigned:
		return "assigned"
	default:
		return fmt.Sprintf("context(%d)", int(c))
	}
}

// Title is the table caption, e.g. "Active".
func (c Context) Title() string {
	return cases.Title(language.English).String(c.String())
}

// ParseContext maps a table name back to its Context.
func ParseContext(name string) (Context, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "active":
		return Active, nil
	case "pending":
		return Pending, nil
	case "assigned":
		return Assigned, nil
	default:
		return 0, fmt.Errorf("unknown table %q", name)
	}
}

// startsLayout is the timestamp layout the backend uses for "starts".
const startsLayout = "2006-01-02 15:04:05"

// Raw is the wire shape of one row. Both backend spellings are accepted:
// name/process for the identity and state/status for the lifecycle status.
type Raw struct {
	Name        string `json:"name,omitempty"`
	Process     string `json:"process,omitempty"`
	FQDN        string `json:"fqdn,omitempty"`
	Environment string `json:"environment,omitempty"`
	State       string `json:"state,omitempty"`
	Status      string `json:"status,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Starts      string `json:"starts,omitempty"`
	Daemon      bool   `json:"daemon,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UnmarshalJSON tolerates a null or numeric "state" (supervisor reports a
// numeric state code next to "statename"), keeping only string values.
func (r *Raw) UnmarshalJSON(data []byte) error {
	type alias Raw
	var aux struct {
		alias
		State  json.RawMessage `json:"state,omitempty"`
		Status json.RawMessage `json:"status,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Raw(aux.alias)
	r.State = stringOrEmpty(aux.State)
	r.Status = stringOrEmpty(aux.Status)
	return nil
}

func stringOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Defaults is the page-level context a row falls back to when it does not
// carry its own identity or host (a host page omits fqdn, a process page
// omits the process name).
type Defaults struct {
	Identity string
	Host     string
}

// Row is a fully resolved row. Empty strings mean "absent"; StartsAt is
// the zero time when the schedule could not be resolved.
type Row struct {
	Context     Context
	Identity    string
	Host        string
	Environment string
	Status      string
	Schedule    string
	StartsAt    time.Time
	Daemon      bool
	Disabled    bool
	Description string
	Error       string
}

// Resolve merges the per-row values over the page defaults.
func Resolve(ctx Context, raw Raw, defaults Defaults) Row {
	return Row{
		Context:     ctx,
		Identity:    firstNonEmpty(raw.Name, raw.Process, defaults.Identity),
		Host:        firstNonEmpty(raw.FQDN, defaults.Host),
		Environment: strings.TrimSpace(raw.Environment),
		Status:      firstNonEmpty(raw.Status, raw.State),
		Schedule:    strings.TrimSpace(raw.Schedule),
		StartsAt:    ParseStarts(raw.Starts),
		Daemon:      raw.Daemon,
		Disabled:    raw.Disabled,
		Description: raw.Description,
		Error:       raw.Error,
	}
}

// ResolveAll resolves a fetched dataset for one table.
func ResolveAll(ctx Context, raws []Raw, defaults Defaults) []Row {
	out := make([]Row, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Resolve(ctx, raw, defaults))
	}
	return out
}

// ParseStarts parses the backend "starts" timestamp. The backend writes
// UTC without a zone; RFC 3339 is accepted as well. Unparseable input
// yields the zero time, which renders as an invalid schedule.
func ParseStarts(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(startsLayout, value, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
