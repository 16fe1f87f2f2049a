package usecase

import (
	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// updateIf loads a record, checks that caller authored it, applies fn and persists the result.
// Nothing is saved when any step fails.
func updateIf[R domain.HasAuthor](
	caller adz.AccountID,
	load func() (R, error),
	fn func(record *R) error,
	save func(record R) error,
) error {
	record, err := load()
	if err != nil {
		return err
	}

	record, err = domain.Authorize(caller, record)
	if err != nil {
		return err
	}

	if err := fn(&record); err != nil {
		return err
	}

	return save(record)
}

func checkCaller(caller adz.AccountID) error {
	if caller == "" {
		return domain.InvalidCallError{Reason: "missing caller identity"}
	}
	return nil
}
