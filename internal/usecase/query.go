package usecase

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// QueryUsecase serves point lookups. Ad and comment reads go through the cache,
// which it keeps fresh by listening to committed events.
//
// epoch counts invalidations. A read only fills the cache if no invalidation
// ran between its store read and its cache write; mu orders the two.
type QueryUsecase struct {
	store  Store
	cache  QueryCache
	logger *zap.Logger

	mu    sync.Mutex
	epoch uint64
}

func NewQueryUsecase(store Store, cache QueryCache, logger *zap.Logger) *QueryUsecase {
	return &QueryUsecase{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func adCacheKey(id uint32) string {
	return fmt.Sprintf("%s%d", domain.CacheKeyAdPrefix, id)
}

func commentCacheKey(adID, commentID uint32) string {
	return fmt.Sprintf("%s%d:%d", domain.CacheKeyCommentPrefix, adID, commentID)
}

func (uc *QueryUsecase) GetAd(ctx context.Context, id uint32) (domain.Ad, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.GetAd")
	defer span.End()

	var ad domain.Ad
	if uc.cached(ctx, adCacheKey(id), &ad) {
		return ad, nil
	}

	epoch := uc.currentEpoch()
	err := uc.store.Atomic(ctx, func(tx Tx) error {
		var err error
		ad, err = tx.GetAd(id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Ad{}, err
	}

	uc.remember(ctx, epoch, adCacheKey(id), ad)
	return ad, nil
}

func (uc *QueryUsecase) GetComment(ctx context.Context, adID, commentID uint32) (domain.Comment, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.GetComment")
	defer span.End()

	key := commentCacheKey(adID, commentID)

	var comment domain.Comment
	if uc.cached(ctx, key, &comment) {
		return comment, nil
	}

	epoch := uc.currentEpoch()
	err := uc.store.Atomic(ctx, func(tx Tx) error {
		var err error
		comment, err = tx.GetComment(adID, commentID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Comment{}, err
	}

	uc.remember(ctx, epoch, key, comment)
	return comment, nil
}

// AdsByTag returns the ids indexed under tag in ascending order; an unknown tag yields none.
func (uc *QueryUsecase) AdsByTag(ctx context.Context, tag string) ([]uint32, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.AdsByTag")
	defer span.End()

	var ids []uint32
	err := uc.store.Atomic(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.TagBucket(tag)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ids == nil {
		ids = []uint32{}
	}
	return ids, nil
}

func (uc *QueryUsecase) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Query.Usecase.Snapshot")
	defer span.End()

	snap, err := uc.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.Snapshot{}, err
	}
	snap.Canonicalize()
	return snap, nil
}

func (uc *QueryUsecase) Digest(ctx context.Context) (string, error) {
	snap, err := uc.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.Digest(), nil
}

// Emit drops cache entries touched by a committed event.
func (uc *QueryUsecase) Emit(ctx context.Context, event adz.Event) error {
	if uc.cache == nil {
		return nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.epoch++

	if event.TouchesComment() {
		uc.cache.Delete(ctx, commentCacheKey(event.AdID, *event.CommentID), adCacheKey(event.AdID))
		return nil
	}
	uc.cache.Delete(ctx, adCacheKey(event.AdID))
	return nil
}

func (uc *QueryUsecase) currentEpoch() uint64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.epoch
}

// cache entries are gob encoded; unlike JSON it keeps non UTF-8 strings intact.
func (uc *QueryUsecase) cached(ctx context.Context, key string, v any) bool {
	if uc.cache == nil {
		return false
	}
	raw, ok := uc.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		uc.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		uc.cache.Delete(ctx, key)
		return false
	}
	return true
}

// remember stores v unless an invalidation happened since epoch was read.
func (uc *QueryUsecase) remember(ctx context.Context, epoch uint64, key string, v any) {
	if uc.cache == nil {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		uc.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.epoch != epoch {
		return
	}
	uc.cache.Set(ctx, key, buf.Bytes())
}
