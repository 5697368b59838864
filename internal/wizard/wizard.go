// Package wizard implements the assignment dialog: binding a process and
// environment to a host. It comes in two variants. The from-process
// variant already knows the process and asks for a host. The from-host
// variant knows the host and asks for a process and then an environment,
// whose suggestions depend on the chosen process.
//
// A Wizard is plain state. Suggestion lookups are described by Lookup
// values the caller runs (usually in a tea.Cmd) and feeds back through
// ApplySuggestions; results for anything but the newest lookup of a
// field are dropped.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"

	"dartdash/internal/actions"
	"dartdash/internal/format"
	"dartdash/internal/transport"
)

// Variant selects which side of the assignment is already known.
type Variant int

const (
	FromProcess Variant = iota
	FromHost
)

func (v Variant) String() string {
	if v == FromHost {
		return "from-host"
	}
	return "from-process"
}

// Field is one editable input of the dialog.
type Field int

const (
	FieldHost Field = iota
	FieldProcess
	FieldEnvironment
)

func (f Field) String() string {
	switch f {
	case FieldHost:
		return "host"
	case FieldProcess:
		return "process"
	case FieldEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) suggestionKind() transport.SuggestionKind {
	switch f {
	case FieldProcess:
		return transport.SuggestProcess
	case FieldEnvironment:
		return transport.SuggestEnvironment
	default:
		return transport.SuggestHost
	}
}

// ValidationError is a required field left empty. It is raised before
// any network call.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Suggester runs autocomplete lookups.
type Suggester interface {
	Suggest(ctx context.Context, q transport.SuggestionQuery) ([]string, error)
}

// Assigner sends the assign command.
type Assigner interface {
	SendCommand(ctx context.Context, req actions.Request) error
}

// Lookup is one pending suggestion request.
type Lookup struct {
	Wizard uint64
	Gen    uint64
	Field  Field
	Query  transport.SuggestionQuery
}

// Notice is the inline message shown inside the dialog.
type Notice struct {
	Text string
	Tier format.Tier
}

// Options tune a wizard.
type Options struct {
	// MinLength is the input length at which suggestions start firing.
	MinLength int
}

type cacheKey struct {
	field     Field
	query     string
	dependsOn string
}

var nextID atomic.Uint64

// Wizard is one open assignment dialog.
type Wizard struct {
	id        uint64
	variant   Variant
	minLength int

	values      map[Field]string
	editable    []Field
	suggestions map[Field][]string
	cache       map[cacheKey][]string
	gen         uint64
	latest      map[Field]uint64
	notice      *Notice

	ctx    context.Context
	cancel context.CancelFunc
}

func newWizard(variant Variant, opts Options) *Wizard {
	ctx, cancel := context.WithCancel(context.Background())
	minLength := opts.MinLength
	if minLength < 1 {
		minLength = 1
	}
	return &Wizard{
		id:          nextID.Add(1),
		variant:     variant,
		minLength:   minLength,
		values:      map[Field]string{},
		suggestions: map[Field][]string{},
		cache:       map[cacheKey][]string{},
		latest:      map[Field]uint64{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// NewFromProcess opens the dialog for a known process. An empty
// environment makes the environment field editable too.
func NewFromProcess(process, environment string, opts Options) *Wizard {
	w := newWizard(FromProcess, opts)
	w.values[FieldProcess] = strings.TrimSpace(process)
	w.values[FieldEnvironment] = strings.TrimSpace(environment)
	w.editable = []Field{FieldHost}
	if w.values[FieldEnvironment] == "" {
		w.editable = append(w.editable, FieldEnvironment)
	}
	return w
}

// NewFromHost opens the dialog for a known host.
func NewFromHost(host string, opts Options) *Wizard {
	w := newWizard(FromHost, opts)
	w.values[FieldHost] = strings.TrimSpace(host)
	w.editable = []Field{FieldProcess, FieldEnvironment}
	return w
}

// ID identifies this dialog instance; it changes every time a dialog is
// opened.
func (w *Wizard) ID() uint64 { return w.id }

func (w *Wizard) Variant() Variant { return w.variant }

// Context is cancelled when the dialog is closed or replaced.
func (w *Wizard) Context() context.Context { return w.ctx }

// Close cancels every in-flight request tied to this dialog.
func (w *Wizard) Close() { w.cancel() }

// Fields lists the editable fields in input order.
func (w *Wizard) Fields() []Field {
	return append([]Field(nil), w.editable...)
}

// Editable reports whether the operator may type into field.
func (w *Wizard) Editable(field Field) bool {
	for _, f := range w.editable {
		if f == field {
			return true
		}
	}
	return false
}

// Value is the current text of field.
func (w *Wizard) Value(field Field) string {
	return w.values[field]
}

// Suggestions are the choices currently offered for field.
func (w *Wizard) Suggestions(field Field) []string {
	return append([]string(nil), w.suggestions[field]...)
}

// Notice is the inline message, if any.
func (w *Wizard) Notice() (Notice, bool) {
	if w.notice == nil {
		return Notice{}, false
	}
	return *w.notice, true
}

// Set updates field to value. When the value is long enough and not
// cached, the returned Lookup must be run and fed back through
// ApplySuggestions.
func (w *Wizard) Set(field Field, value string) (Lookup, bool) {
	if !w.Editable(field) {
		return Lookup{}, false
	}
	previous := w.values[field]
	w.values[field] = value
	if field == FieldProcess && previous != value {
		w.invalidateEnvironment()
	}

	query := strings.TrimSpace(value)
	if len(query) < w.minLength {
		w.suggestions[field] = nil
		w.latest[field] = w.nextGen()
		return Lookup{}, false
	}
	q := transport.SuggestionQuery{Kind: field.suggestionKind(), Query: query}
	if field == FieldEnvironment {
		q.DependsOn = strings.TrimSpace(w.values[FieldProcess])
	}
	key := cacheKey{field: field, query: q.Query, dependsOn: q.DependsOn}
	if cached, ok := w.cache[key]; ok {
		w.suggestions[field] = cached
		w.latest[field] = w.nextGen()
		return Lookup{}, false
	}
	gen := w.nextGen()
	w.latest[field] = gen
	return Lookup{Wizard: w.id, Gen: gen, Field: field, Query: q}, true
}

func (w *Wizard) nextGen() uint64 {
	w.gen++
	return w.gen
}

func (w *Wizard) invalidateEnvironment() {
	for key := range w.cache {
		if key.field == FieldEnvironment {
			delete(w.cache, key)
		}
	}
	w.suggestions[FieldEnvironment] = nil
	w.latest[FieldEnvironment] = w.nextGen()
}

// ApplySuggestions stores the results of l. Results of a lookup that is
// no longer the newest for its field, or that belongs to another dialog,
// are dropped and false is returned.
func (w *Wizard) ApplySuggestions(l Lookup, results []string) bool {
	if l.Wizard != w.id || w.latest[l.Field] != l.Gen {
		glog.V(2).Infof("dropping stale %s suggestions for %q", l.Field, l.Query.Query)
		return false
	}
	results = append([]string(nil), results...)
	w.cache[cacheKey{field: l.Field, query: l.Query.Query, dependsOn: l.Query.DependsOn}] = results
	w.suggestions[l.Field] = results
	return true
}

// Select takes the index-th suggestion for field as its value.
func (w *Wizard) Select(field Field, index int) bool {
	choices := w.suggestions[field]
	if index < 0 || index >= len(choices) {
		return false
	}
	choice := choices[index]
	if field == FieldProcess && w.values[FieldProcess] != choice {
		w.invalidateEnvironment()
	}
	w.values[field] = choice
	w.suggestions[field] = nil
	w.latest[field] = w.nextGen()
	return true
}

// AutoSelect takes the first suggestion, if any.
func (w *Wizard) AutoSelect(field Field) bool {
	return w.Select(field, 0)
}

// Validate checks the required fields without touching the network.
func (w *Wizard) Validate() error {
	host := strings.TrimSpace(w.values[FieldHost])
	process := strings.TrimSpace(w.values[FieldProcess])
	environment := strings.TrimSpace(w.values[FieldEnvironment])
	switch {
	case host == "":
		return &ValidationError{Field: FieldHost, Message: fmt.Sprintf("Please choose a host on which %s will be assigned.", process)}
	case process == "":
		return &ValidationError{Field: FieldProcess, Message: fmt.Sprintf("Please choose a process that will be assigned to %s.", host)}
	case environment == "":
		return &ValidationError{Field: FieldEnvironment, Message: fmt.Sprintf("Please choose an environment for the process %s that will be assigned to %s.", process, host)}
	}
	return nil
}

// Request is the assign command for the current values.
func (w *Wizard) Request() actions.Request {
	return actions.Request{
		Kind:        actions.Assign,
		Host:        strings.TrimSpace(w.values[FieldHost]),
		Identity:    strings.TrimSpace(w.values[FieldProcess]),
		Environment: strings.TrimSpace(w.values[FieldEnvironment]),
	}
}

// Prepare validates the dialog. On failure the validation message becomes
// the inline notice and ok is false.
func (w *Wizard) Prepare() (req actions.Request, ok bool) {
	if err := w.Validate(); err != nil {
		w.notice = &Notice{Text: err.Error(), Tier: format.TierCritical}
		return actions.Request{}, false
	}
	return w.Request(), true
}

// ApplyResult records the outcome of an assign for req. The dialog stays
// open; a success replaces any earlier error and vice versa.
func (w *Wizard) ApplyResult(req actions.Request, err error) {
	if err == nil {
		w.notice = &Notice{
			Text: fmt.Sprintf("The process %s %s has been assigned to %s. The process must now be added to the host to activate it.",
				req.Identity, req.Environment, req.Host),
			Tier: format.TierNominal,
		}
		return
	}
	w.notice = &Notice{
		Text: fmt.Sprintf("Problem encountered while trying to add %s %s to %s. %s",
			req.Identity, req.Environment, req.Host, reason(err)),
		Tier: format.TierCritical,
	}
}

// Submit validates and, when valid, sends the assign command through a.
func (w *Wizard) Submit(ctx context.Context, a Assigner) error {
	req, ok := w.Prepare()
	if !ok {
		return w.Validate()
	}
	err := a.SendCommand(ctx, req)
	w.ApplyResult(req, err)
	return err
}

// Fetch runs l. Lookup failures are logged and read as no suggestions.
func Fetch(ctx context.Context, s Suggester, l Lookup) []string {
	results, err := s.Suggest(ctx, l.Query)
	if err != nil {
		glog.Warningf("%s suggestions for %q: %v", l.Field, l.Query.Query, err)
		return nil
	}
	return results
}

func reason(err error) string {
	var cmdErr *transport.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	return err.Error()
}
