package service

import (
	"context"
	"errors"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

// MultiSink hands every event to all sinks, even when some of them fail.
type MultiSink []usecase.EventSink

func (m MultiSink) Emit(ctx context.Context, event adz.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
