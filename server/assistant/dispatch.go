package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/internal/observability"
	"github.com/thachpham/thachai/server/nlu"
)

// Dispatcher maps each intent to exactly one handler. The table is built
// once at construction and read-only afterwards; there is no dynamic
// registration at request time.
type Dispatcher struct {
	table  map[nlu.Intent]HandlerFunc
	budget time.Duration
	logger *slog.Logger
}

// NewDispatcher builds the dispatcher from a handler table. It panics if
// the table is not total over nlu.AllIntents: a missing handler is a
// wiring bug that must fail at startup, not at request time.
func NewDispatcher(table map[nlu.Intent]HandlerFunc, budget time.Duration) *Dispatcher {
	for _, intent := range nlu.AllIntents() {
		if table[intent] == nil {
			panic(fmt.Sprintf("dispatch table missing handler for intent %q", intent))
		}
	}
	return &Dispatcher{
		table:  table,
		budget: budget,
		logger: slog.Default(),
	}
}

type dispatchOutcome struct {
	result *HandlerResult
	err    error
}

// Dispatch invokes the handler for intent under the time budget. Every
// failure mode (handler error, panic, timeout) degrades into a valid
// HandlerResult so the caller always gets a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, intent nlu.Intent, req *Request) *HandlerResult {
	handler := d.table[intent]

	handlerCtx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	outcomeCh := make(chan dispatchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- dispatchOutcome{err: errors.Newf(errors.ErrCodeHandlerFailed, "handler panic: %v", r)}
			}
		}()
		result, err := handler(handlerCtx, req)
		outcomeCh <- dispatchOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			d.logger.Error("feature handler failed",
				observability.LogFieldIntent, string(intent),
				observability.LogFieldErrorCode, string(errors.ErrCodeHandlerFailed),
				"error", outcome.err)
			return d.degraded(req.Language)
		}
		if outcome.result == nil {
			d.logger.Error("feature handler returned nil result",
				observability.LogFieldIntent, string(intent))
			return d.degraded(req.Language)
		}
		return outcome.result

	case <-handlerCtx.Done():
		// The handler goroutine keeps running until its context-aware
		// calls return; the reply does not wait for it.
		d.logger.Warn("feature handler exceeded time budget",
			observability.LogFieldIntent, string(intent),
			observability.LogFieldErrorCode, string(errors.ErrCodeHandlerTimeout),
			"budget", d.budget)
		return d.degraded(req.Language)
	}
}

// degraded is the localized apology used for any handler-level failure.
func (d *Dispatcher) degraded(language string) *HandlerResult {
	return &HandlerResult{
		Success: false,
		Message: msg(language,
			"Xin lỗi, có lỗi xảy ra. Vui lòng thử lại.",
			"Sorry, something went wrong. Please try again."),
	}
}
