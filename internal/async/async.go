package async

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/notify"

	"go.uber.org/zap"
)

const defaultErrorMessage = "An error occurred"

// Options configures Run. Every field is optional.
type Options[T any] struct {
	SetLoading func(bool)
	Notifier   notify.Publisher
	Logger     *zap.Logger

	OnSuccess func(T)
	OnError   func(*apierror.Response)

	// SuccessMessage is published with success severity when non-empty.
	SuccessMessage string
	// ErrorMessage replaces errors that carry no message of their own.
	ErrorMessage string
}

// Result is either a value or a classified error, never both.
type Result[T any] struct {
	Value T
	Err   *apierror.Response
}

func (r Result[T]) Ok() bool { return r.Err == nil }

// Run executes op with loading tracking, user notification and error
// normalization. It never returns the raw error of op and never panics
// outward; a panic in op is reported as an unknown error.
func Run[T any](ctx context.Context, op func(context.Context) (T, error), opts Options[T]) (res Result[T]) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.SetLoading != nil {
		opts.SetLoading(true)
		defer opts.SetLoading(false)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("operation panicked", zap.Any("panic", r))
			res = Result[T]{Err: fail(fmt.Errorf("%v", r), opts, logger)}
		}
	}()

	value, err := op(ctx)
	if err != nil {
		return Result[T]{Err: fail(err, opts, logger)}
	}

	if opts.SuccessMessage != "" && opts.Notifier != nil {
		opts.Notifier.Publish(notify.Success, opts.SuccessMessage, 0)
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess(value)
	}

	return Result[T]{Value: value}
}

func fail[T any](err error, opts Options[T], logger *zap.Logger) *apierror.Response {
	resp, ok := apierror.As(err)
	if !ok {
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = opts.ErrorMessage
		}
		if msg == "" {
			msg = defaultErrorMessage
		}
		resp = &apierror.Response{Type: apierror.Unknown, Message: msg, Details: err}
	}

	logger.Warn("operation failed",
		zap.String("type", string(resp.Type)),
		zap.String("code", resp.Code),
		zap.Bool("retry", resp.Retry),
		zap.Error(err),
	)

	if opts.Notifier != nil {
		opts.Notifier.Publish(notify.SeverityFor(resp.Type), resp.Message, notify.TTLFor(resp.Type))
	}
	if opts.OnError != nil {
		opts.OnError(resp)
	}

	return resp
}
