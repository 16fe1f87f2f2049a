package usecase

import (
	"context"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// Store owns the ad table, the comment table, the tag index and the ad counter.
type Store interface {
	// Atomic runs fn against a staged view. Changes become visible only if fn returns nil.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Tx is the table access available inside Store.Atomic.
// Lookups of missing rows return domain.NotFoundError.
type Tx interface {
	AdCounter() (uint32, error)
	SetAdCounter(next uint32) error

	GetAd(id uint32) (domain.Ad, error)
	// InsertAd fails when the id is already taken.
	InsertAd(ad domain.Ad) error
	PutAd(ad domain.Ad) error
	DeleteAd(id uint32) error

	GetComment(adID, commentID uint32) (domain.Comment, error)
	PutComment(comment domain.Comment) error
	DeleteComment(adID, commentID uint32) error

	// TagBucket returns the ad ids indexed under tag in ascending order, empty when the tag is unknown.
	TagBucket(tag string) ([]uint32, error)
	AddToTag(tag string, adID uint32) error
	// RemoveFromTag drops adID from the bucket and the bucket itself once empty.
	RemoveFromTag(tag string, adID uint32) error
}

// Escrow moves funds on the host ledger. A reference is applied at most once,
// so a transfer can be retried without paying twice.
type Escrow interface {
	Transfer(ctx context.Context, reference string, from, to adz.AccountID, amount adz.Amount) error
}

// Clock is the host timestamp oracle.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// EventSink receives committed events. Emit is fire-and-forget from the caller's view.
type EventSink interface {
	Emit(ctx context.Context, event adz.Event) error
}

// QueryCache is the read-side cache for point lookups.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, keys ...string)
}
