package domain

import "github.com/totegamma/concrnt-adz"

// Authorize succeeds only when caller is the author of record.
func Authorize[R HasAuthor](caller adz.AccountID, record R) (R, error) {
	if record.AuthorID() != caller {
		var zero R
		return zero, NotAuthorError{Caller: caller}
	}
	return record, nil
}
