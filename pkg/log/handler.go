package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// ErrFmtHandler is a slog handler that expands the error attribute of a
// record into the cockroachdb/errors stack trace and the location carried by
// featbin's typed errors: the feature whose finalize failed, the offset of a
// corrupt buffer, the unit that panicked.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with an ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{
		handler: handler,
	}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var extra []slog.Attr
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			extra = errorAttrs(err)
		}
		return false
	})
	if len(extra) > 0 {
		r.AddAttrs(extra...)
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// errorAttrs collects the attributes ErrFmtHandler adds for err.
func errorAttrs(err error) []slog.Attr {
	var attrs []slog.Attr
	if st := extractStacktrace(err); st != "" {
		attrs = append(attrs, slog.String(StacktraceAttrKey, st))
	}
	var finErr *scierrors.FinalizeError
	if errors.As(err, &finErr) {
		attrs = append(attrs, slog.Int(FeatureIndexKey, finErr.Feature))
	}
	var corrupt *scierrors.CorruptDataError
	if errors.As(err, &corrupt) {
		attrs = append(attrs,
			slog.String(ErrorOperationKey, corrupt.Op),
			slog.Int(ErrorOffsetKey, corrupt.Offset),
		)
	}
	var panicErr *scierrors.PanicError
	if errors.As(err, &panicErr) && corrupt == nil {
		attrs = append(attrs, slog.String(ErrorOperationKey, panicErr.Operation))
	}
	return attrs
}

// extractStacktrace walks the cause chain and returns the first safe detail
// recorded by errors.WithStack.
func extractStacktrace(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if details := errors.GetSafeDetails(e).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}
