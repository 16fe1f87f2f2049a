package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
)

var tracer = otel.Tracer("usecase")

// emit hands a committed event to the sink. Sink failures never undo a commit.
func emit(ctx context.Context, sink EventSink, logger *zap.Logger, event adz.Event) {
	trace.SpanFromContext(ctx).AddEvent(string(event.Kind), trace.WithAttributes(
		attribute.String("account", string(event.Account)),
		attribute.Int64("ad_id", int64(event.AdID)),
	))
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, event); err != nil {
		logger.Warn("event sink failed",
			zap.String("kind", string(event.Kind)),
			zap.Uint32("ad_id", event.AdID),
			zap.Error(err),
		)
	}
}

func commentEvent(kind adz.EventKind, caller adz.AccountID, adID, commentID uint32) adz.Event {
	return adz.Event{
		Kind:      kind,
		Account:   caller,
		AdID:      adID,
		CommentID: &commentID,
	}
}
