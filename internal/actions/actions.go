// Package actions defines the command kinds an operator can issue and
// the catalog deciding which of them each table row offers.
package actions

import (
	"fmt"
	"strings"

	"github.com/thoas/go-funk"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dartdash/internal/row"
)

// Kind is one lifecycle command.
type Kind string

const (
	Start    Kind = "start"
	Stop     Kind = "stop"
	Restart  Kind = "restart"
	Enable   Kind = "enable"
	Disable  Kind = "disable"
	Update   Kind = "update"
	Add      Kind = "add"
	Remove   Kind = "remove"
	Assign   Kind = "assign"
	Unassign Kind = "unassign"
	Reread   Kind = "reread"
	Rewrite  Kind = "rewrite"
)

// Kinds lists every known command kind.
var Kinds = []Kind{Start, Stop, Restart, Enable, Disable, Update, Add, Remove, Assign, Unassign, Reread, Rewrite}

// ParseKind validates a command name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if !funk.Contains(Kinds, k) {
		return "", fmt.Errorf("unknown command %q", name)
	}
	return k, nil
}

// HostLevel reports whether the command addresses a whole host rather
// than one process on it.
func (k Kind) HostLevel() bool {
	return k == Reread || k == Rewrite
}

// Label is the menu caption for the command.
func (k Kind) Label() string {
	return cases.Title(language.English).String(string(k))
}

// Request is one command addressed to the backend.
type Request struct {
	Kind        Kind
	Host        string
	Identity    string
	Environment string
}

// Validate checks the fields the command kind requires.
func (r Request) Validate() error {
	if r.Host == "" {
		return fmt.Errorf("%s: missing fully qualified domain name", r.Kind)
	}
	if r.Kind.HostLevel() {
		return nil
	}
	if r.Identity == "" {
		return fmt.Errorf("%s: missing process name", r.Kind)
	}
	if r.Kind == Assign && r.Environment == "" {
		return fmt.Errorf("%s: missing process environment", r.Kind)
	}
	return nil
}

// DefaultSets are the actions each table offers out of the box. Pending
// rows get the single-endpoint backend's set; add/remove can be enabled
// per deployment through the catalog configuration.
func DefaultSets() map[row.Context][]Kind {
	return map[row.Context][]Kind{
		row.Active:   {Start, Stop, Restart, Enable, Disable},
		row.Pending:  {Update, Enable, Disable},
		row.Assigned: {Unassign, Start, Stop, Restart, Enable, Disable},
	}
}

// Catalog maps a row to its permitted commands.
type Catalog struct {
	sets   map[row.Context][]Kind
	ignore []string
}

// NewCatalog builds a catalog. Contexts missing from sets fall back to
// DefaultSets; ignore lists identities that are never managed from here.
func NewCatalog(sets map[row.Context][]Kind, ignore []string) *Catalog {
	merged := DefaultSets()
	for ctx, kinds := range sets {
		merged[ctx] = append([]Kind(nil), kinds...)
	}
	return &Catalog{sets: merged, ignore: append([]string(nil), ignore...)}
}

// Ignored reports whether identity is on the ignore list.
func (c *Catalog) Ignored(identity string) bool {
	return funk.ContainsString(c.ignore, identity)
}

// For returns the ordered action set for a row in the given table.
func (c *Catalog) For(ctx row.Context, identity string) []Kind {
	if c.Ignored(identity) {
		return nil
	}
	return append([]Kind(nil), c.sets[ctx]...)
}

// Permits reports whether kind is offered for the row.
func (c *Catalog) Permits(ctx row.Context, identity string, kind Kind) bool {
	return funk.Contains(c.For(ctx, identity), kind)
}
