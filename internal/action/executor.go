package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/pipeline"
)

// Executor is the single entry point for agent-initiated actions. Every
// request passes the same gates in order: known type, mode, payload
// validation, confirmation, dispatch. The outcome is logged and counted no
// matter which gate produced it.
type Executor struct {
	handlers *Handlers
	audit    *Logger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewExecutor(handlers *Handlers, audit *Logger, m *metrics.Metrics, logger *slog.Logger) *Executor {
	return &Executor{
		handlers: handlers,
		audit:    audit,
		metrics:  m,
		logger:   logger.With("component", "executor"),
	}
}

// Execute runs one action request for the given session context
func (e *Executor) Execute(ctx context.Context, req Request, actx Context) Result {
	start := time.Now()

	res := e.execute(ctx, req, actx)

	e.record(req.Type, actx, res, time.Since(start))
	return res
}

func (e *Executor) execute(ctx context.Context, req Request, actx Context) Result {
	if !Known(req.Type) {
		return Fail(fmt.Sprintf("unknown action type %q", req.Type))
	}

	if !ModeAllowed(req.Type, actx.Mode) {
		return Fail(modeError(req.Type, actx.Mode).Error())
	}

	payload, violations := ParsePayload(req.Type, req.Payload)
	if len(violations) > 0 {
		return Fail(JoinViolations(violations))
	}

	if RequiresConfirmation(req.Type) && !req.UserConfirmed {
		e.metrics.ConfirmationsRequired.WithLabelValues(string(req.Type)).Inc()
		return NeedConfirmation(confirmationMessage(req.Type, payload))
	}

	return e.dispatch(ctx, req.Type, payload, actx)
}

// dispatch invokes the handler, converting panics into failures so one bad
// handler never takes down the server loop.
func (e *Executor) dispatch(ctx context.Context, t Type, payload any, actx Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", "action", t, "panic", r)
			res = Fail(pipeline.SanitizeMessage(fmt.Sprintf("internal error executing %s: %v", t, r)))
		}
	}()
	return e.handlers.Dispatch(ctx, t, payload, actx)
}

func (e *Executor) record(t Type, actx Context, res Result, elapsed time.Duration) {
	outcome := "success"
	if res.RequiresConfirmation {
		outcome = "confirmation_required"
	} else if !res.Success {
		outcome = "failure"
	}

	e.metrics.ActionsTotal.WithLabelValues(string(t), outcome).Inc()

	entry := LogEntry{
		Type:      t,
		Success:   res.Success,
		Error:     res.Error,
		Timestamp: time.Now(),
	}
	if res.RequiresConfirmation {
		entry.Error = "confirmation required"
	}
	if err := e.audit.Append(actx.UserID, entry); err != nil {
		e.logger.Warn("failed to append audit log", "action", t, "error", err)
	}

	e.logger.Info("action executed",
		"action", t,
		"user_id", actx.UserID,
		"mode", actx.Mode,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds())
}

// confirmationMessage builds the human-facing prompt for a gated action.
// Messages summarise scope so the user knows exactly what they are approving.
func confirmationMessage(t Type, payload any) string {
	switch t {
	case TypeApproveStagedContacts:
		p := payload.(ApproveStagedContactsPayload)
		return fmt.Sprintf("Create campaign %q with %d contacts?", p.CampaignName, len(p.KeptContactIDs))
	case TypeSendEmails:
		return "Send emails to all contacts in this campaign?"
	case TypeDeleteContacts:
		p := payload.(DeleteContactsPayload)
		return fmt.Sprintf("Delete %d contacts? This cannot be undone.", len(p.ContactIDs))
	case TypeBulkUpdateContacts:
		p := payload.(BulkUpdateContactsPayload)
		return fmt.Sprintf("Update %d contacts?", len(p.ContactIDs))
	}
	return fmt.Sprintf("Confirm %s?", t)
}
