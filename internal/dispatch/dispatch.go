// Package dispatch resolves completed slot sets to catalog actions and executes them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rbright/lampwake/internal/catalog"
	"github.com/rbright/lampwake/internal/grammar"
	"github.com/rbright/lampwake/internal/recognition"
)

// ErrCatalogDesync indicates a slot value the grammar produced is missing from
// the catalog it was built from.
var ErrCatalogDesync = errors.New("grammar and catalog out of sync")

// Outcome classifies one dispatch attempt.
type Outcome string

const (
	OutcomeExecuted       Outcome = "executed"
	OutcomeNoSubject      Outcome = "no-subject"
	OutcomeUnboundSubject Outcome = "unbound-subject"
	OutcomeIncomplete     Outcome = "incomplete-command"
	OutcomeFailed         Outcome = "failed"
)

// Feedback is the dispatcher-facing subset of cue playback.
type Feedback interface {
	PlayAcknowledge(context.Context)
}

type noopFeedback struct{}

func (noopFeedback) PlayAcknowledge(context.Context) {}

// Dispatcher executes at most one catalog action at a time.
type Dispatcher struct {
	logger   *slog.Logger
	catalog  *catalog.Catalog
	feedback Feedback

	mu sync.Mutex
}

// New constructs a dispatcher over an immutable catalog.
func New(logger *slog.Logger, c *catalog.Catalog, feedback Feedback) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if feedback == nil {
		feedback = noopFeedback{}
	}
	return &Dispatcher{logger: logger, catalog: c, feedback: feedback}
}

// Dispatch validates slot presence, resolves the action and identifier and
// executes the action. Shape problems and executor failures are reported as
// outcomes; only catalog desynchronization is returned as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, result recognition.Result) (Outcome, error) {
	logger := d.logger.With("text", result.Text(), "confidence", result.Confidence())

	subject, ok := result.Slot(grammar.SlotSubject)
	if !ok {
		logger.Warn("command dropped", "outcome", OutcomeNoSubject)
		return OutcomeNoSubject, nil
	}
	if subject.Value != d.catalog.Subject().SemanticValue {
		logger.Warn("command dropped", "outcome", OutcomeUnboundSubject, "subject", subject.Value)
		return OutcomeUnboundSubject, nil
	}

	actionSlot, haveAction := result.Slot(grammar.SlotAction)
	identifierSlot, haveIdentifier := result.Slot(grammar.SlotIdentifier)
	if !haveAction || !haveIdentifier {
		logger.Warn("command dropped",
			"outcome", OutcomeIncomplete,
			"has_action", haveAction,
			"has_identifier", haveIdentifier,
			"slots", result.Slots(),
		)
		return OutcomeIncomplete, nil
	}

	action, ok := d.catalog.Action(actionSlot.Value)
	if !ok {
		err := fmt.Errorf("%w: unknown action %q", ErrCatalogDesync, actionSlot.Value)
		logger.Error("dispatch invariant violated", "error", err.Error())
		return "", err
	}
	identifier, ok := d.catalog.Identifier(identifierSlot.Value)
	if !ok {
		err := fmt.Errorf("%w: unknown identifier %q", ErrCatalogDesync, identifierSlot.Value)
		logger.Error("dispatch invariant violated", "error", err.Error())
		return "", err
	}

	logger = logger.With(
		"command_id", uuid.NewString(),
		"subject", subject.Value,
		"action", action.SemanticValue(),
		"identifier", identifier.SemanticValue,
	)

	d.feedback.PlayAcknowledge(ctx)

	d.mu.Lock()
	err := action.Execute(ctx, identifier)
	d.mu.Unlock()

	if err != nil {
		logger.Error("command failed", "outcome", OutcomeFailed, "error", err.Error())
		return OutcomeFailed, nil
	}
	logger.Info("command executed", "outcome", OutcomeExecuted)
	return OutcomeExecuted, nil
}
