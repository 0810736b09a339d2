// Package interceptor records the outcome of one handled request as a single
// structured completion record.
package interceptor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

type State int32

const (
	Started State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Started:
		return "STARTED"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	ErrRequestCancelled = errors.New("request cancelled")
	ErrRequestTimeout   = errors.New("request timeout")
)

// Descriptor identifies the intercepted request in the completion record.
type Descriptor struct {
	Method string
	Path   string
}

// Call tracks one request from entry to its terminal outcome.
type Call struct {
	ctx        context.Context
	logger     *log.Logger
	descriptor Descriptor
	start      time.Time
	now        func() time.Time
	state      atomic.Int32
}

func Start(ctx context.Context, logger *log.Logger, descriptor Descriptor) *Call {
	return start(ctx, logger, descriptor, time.Now)
}

func start(ctx context.Context, logger *log.Logger, descriptor Descriptor, now func() time.Time) *Call {
	c := &Call{
		ctx:        ctx,
		logger:     logger,
		descriptor: descriptor,
		now:        now,
		start:      now(),
	}
	c.state.Store(int32(Started))
	return c
}

func (c *Call) State() State {
	return State(c.state.Load())
}

// Succeed records a successful completion. It returns false when the call already completed.
func (c *Call) Succeed(extra ...any) bool {
	if !c.state.CompareAndSwap(int32(Started), int32(Succeeded)) {
		return false
	}

	args := append(c.baseFields(StatusSuccess), extra...)
	c.logger.InfoContext(c.ctx, "Request completed", args...)
	return true
}

// Fail records a failed completion with the handler's own error. It returns false when the
// call already completed.
func (c *Call) Fail(err error, extra ...any) bool {
	if !c.state.CompareAndSwap(int32(Started), int32(Failed)) {
		return false
	}

	if err == nil {
		err = errors.New("unknown failure")
	}

	args := append(c.baseFields(StatusFailure),
		"error", err.Error(),
		"errorType", errorType(err),
	)
	args = append(args, extra...)
	c.logger.ErrorContext(c.ctx, "Request failed", args...)
	return true
}

// Complete routes to Fail when err is non-nil and to Succeed otherwise.
func (c *Call) Complete(err error, extra ...any) bool {
	if err != nil {
		return c.Fail(err, extra...)
	}
	return c.Succeed(extra...)
}

func (c *Call) Duration() time.Duration {
	return c.now().Sub(c.start)
}

func (c *Call) baseFields(status string) []any {
	return []any{
		"method", c.descriptor.Method,
		"path", c.descriptor.Path,
		"status", status,
		"duration", c.Duration().Milliseconds(),
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrRequestCancelled):
		return "REQUEST_CANCELLED"
	case errors.Is(err, ErrRequestTimeout):
		return apperrors.ErrorTypeRequestTimeout
	default:
		return apperrors.GetErrorType(err)
	}
}
