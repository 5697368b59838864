// Package dispatch sends lifecycle commands and turns their results into
// operator messages. A successful command always triggers a full silent
// refresh; a failed one never does.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"dartdash/internal/actions"
	"dartdash/internal/message"
	"dartdash/internal/transport"
)

// Commander sends one command to the backend.
type Commander interface {
	SendCommand(ctx context.Context, req actions.Request) error
}

// Refresher re-fetches every table without blocking.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Presenter shows an outcome to the operator.
type Presenter interface {
	Show(message.Message)
}

// Outcome is the terminal state of one dispatched command.
type Outcome struct {
	Request actions.Request
	OK      bool
	Message message.Message
	Err     error
}

// Dispatcher routes command requests to the backend.
type Dispatcher struct {
	commander Commander
	refresher Refresher
	presenter Presenter
}

// New creates a dispatcher. refresher and presenter may be nil.
func New(commander Commander, refresher Refresher, presenter Presenter) *Dispatcher {
	return &Dispatcher{commander: commander, refresher: refresher, presenter: presenter}
}

// Dispatch sends req and blocks until the backend answers. Concurrent
// calls are independent: each shows its own message and triggers its own
// refresh, in completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, req actions.Request) Outcome {
	out := Outcome{Request: req}
	err := req.Validate()
	if err == nil {
		err = d.commander.SendCommand(ctx, req)
	}
	if err != nil {
		glog.Warningf("command %s on %s/%s failed: %v", req.Kind, req.Host, req.Identity, err)
		out.Err = err
		out.Message = message.Failure(FailureText(req, Reason(err)))
	} else {
		glog.V(1).Infof("command %s on %s/%s accepted", req.Kind, req.Host, req.Identity)
		out.OK = true
		out.Message = message.Done(SuccessText(req))
	}
	if d.presenter != nil {
		d.presenter.Show(out.Message)
	}
	if out.OK && d.refresher != nil {
		d.refresher.RefreshAll(context.WithoutCancel(ctx))
	}
	return out
}

// Reason is the operator-facing reason for a failed command.
func Reason(err error) string {
	var cmdErr *transport.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	if err == nil {
		return transport.UnknownError
	}
	return err.Error()
}

// SuccessText renders the per-kind confirmation.
func SuccessText(req actions.Request) string {
	const configurations = "Configurations should be updated soon."
	switch req.Kind {
	case actions.Start, actions.Stop, actions.Restart:
		return fmt.Sprintf("Sent %s command to %s for %s. The process should be %s soon.",
			req.Kind, req.Host, req.Identity, pastTense(req.Kind))
	case actions.Reread:
		return fmt.Sprintf("Sent reread command to %s. %s", req.Host, configurations)
	case actions.Rewrite:
		return fmt.Sprintf("Sent rewrite command to %s. %s Note that a rewrite implies a reread. No separate reread is necessary.",
			req.Host, configurations)
	case actions.Assign:
		return fmt.Sprintf("Assigned %s to %s. %s", processLabel(req), req.Host, configurations)
	case actions.Unassign:
		return fmt.Sprintf("Unassigned %s from %s. %s", req.Identity, req.Host, configurations)
	default:
		return fmt.Sprintf("Sent %s command to %s for %s. %s", req.Kind, req.Host, req.Identity, configurations)
	}
}

// FailureText renders the per-kind failure notice around reason.
func FailureText(req actions.Request, reason string) string {
	switch {
	case req.Kind.HostLevel() || req.Identity == "":
		return fmt.Sprintf("Problem encountered when sending command to %s: %s", req.Host, reason)
	case req.Kind == actions.Assign:
		return fmt.Sprintf("Problem encountered when sending command to %s for %s: %s", req.Host, processLabel(req), reason)
	default:
		return fmt.Sprintf("Problem encountered when sending command to %s for %s: %s", req.Host, req.Identity, reason)
	}
}

func pastTense(kind actions.Kind) string {
	switch kind {
	case actions.Stop:
		return "stopped"
	default:
		return string(kind) + "ed"
	}
}

func processLabel(req actions.Request) string {
	return strings.TrimSpace(req.Identity + " " + req.Environment)
}
