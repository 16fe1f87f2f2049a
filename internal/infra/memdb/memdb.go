// Package memdb is an in-process arena store. Every Atomic call works on a
// private overlay that is merged into the tables only when the callback succeeds.
package memdb

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

type commentKey struct {
	adID      uint32
	commentID uint32
}

type MemDB struct {
	mu       sync.Mutex
	nextAdID uint32
	ads      map[uint32]domain.Ad
	comments map[commentKey]domain.Comment
	tags     map[string]map[uint32]struct{}
}

func New() *MemDB {
	return &MemDB{
		ads:      make(map[uint32]domain.Ad),
		comments: make(map[commentKey]domain.Comment),
		tags:     make(map[string]map[uint32]struct{}),
	}
}

func (m *MemDB) Atomic(ctx context.Context, fn func(tx usecase.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := &tx{
		db:       m,
		ads:      make(map[uint32]*domain.Ad),
		comments: make(map[commentKey]*domain.Comment),
		tags:     make(map[string]map[uint32]struct{}),
	}
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (m *MemDB) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := domain.Snapshot{
		NextAdID: m.nextAdID,
		Ads:      make([]domain.Ad, 0, len(m.ads)),
		Comments: make([]domain.Comment, 0, len(m.comments)),
		Tags:     make(map[string][]uint32, len(m.tags)),
	}
	for _, ad := range m.ads {
		snap.Ads = append(snap.Ads, cloneAd(ad))
	}
	for _, c := range m.comments {
		snap.Comments = append(snap.Comments, c)
	}
	for tag, bucket := range m.tags {
		snap.Tags[tag] = sortedIDs(bucket)
	}
	snap.Canonicalize()
	return snap, nil
}

// tx stages writes. A nil entry in ads/comments is a pending delete;
// an empty bucket in tags is a pending bucket removal.
type tx struct {
	db       *MemDB
	counter  *uint32
	ads      map[uint32]*domain.Ad
	comments map[commentKey]*domain.Comment
	tags     map[string]map[uint32]struct{}
}

func (t *tx) AdCounter() (uint32, error) {
	if t.counter != nil {
		return *t.counter, nil
	}
	return t.db.nextAdID, nil
}

func (t *tx) SetAdCounter(next uint32) error {
	t.counter = &next
	return nil
}

func (t *tx) GetAd(id uint32) (domain.Ad, error) {
	if staged, ok := t.ads[id]; ok {
		if staged == nil {
			return domain.Ad{}, domain.NotFoundError{Resource: "ad"}
		}
		return cloneAd(*staged), nil
	}
	ad, ok := t.db.ads[id]
	if !ok {
		return domain.Ad{}, domain.NotFoundError{Resource: "ad"}
	}
	return cloneAd(ad), nil
}

func (t *tx) InsertAd(ad domain.Ad) error {
	if _, err := t.GetAd(ad.ID); err == nil {
		return errors.Errorf("ad %d already exists", ad.ID)
	}
	return t.PutAd(ad)
}

func (t *tx) PutAd(ad domain.Ad) error {
	staged := cloneAd(ad)
	t.ads[ad.ID] = &staged
	return nil
}

func (t *tx) DeleteAd(id uint32) error {
	if _, err := t.GetAd(id); err != nil {
		return err
	}
	t.ads[id] = nil
	return nil
}

func (t *tx) GetComment(adID, commentID uint32) (domain.Comment, error) {
	key := commentKey{adID: adID, commentID: commentID}
	if staged, ok := t.comments[key]; ok {
		if staged == nil {
			return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
		}
		return *staged, nil
	}
	c, ok := t.db.comments[key]
	if !ok {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	return c, nil
}

func (t *tx) PutComment(comment domain.Comment) error {
	staged := comment
	t.comments[commentKey{adID: comment.AdID, commentID: comment.CommentID}] = &staged
	return nil
}

func (t *tx) DeleteComment(adID, commentID uint32) error {
	if _, err := t.GetComment(adID, commentID); err != nil {
		return err
	}
	t.comments[commentKey{adID: adID, commentID: commentID}] = nil
	return nil
}

func (t *tx) bucket(tag string) map[uint32]struct{} {
	if staged, ok := t.tags[tag]; ok {
		return staged
	}
	copied := make(map[uint32]struct{}, len(t.db.tags[tag]))
	for id := range t.db.tags[tag] {
		copied[id] = struct{}{}
	}
	t.tags[tag] = copied
	return copied
}

func (t *tx) TagBucket(tag string) ([]uint32, error) {
	if staged, ok := t.tags[tag]; ok {
		return sortedIDs(staged), nil
	}
	return sortedIDs(t.db.tags[tag]), nil
}

func (t *tx) AddToTag(tag string, adID uint32) error {
	t.bucket(tag)[adID] = struct{}{}
	return nil
}

func (t *tx) RemoveFromTag(tag string, adID uint32) error {
	delete(t.bucket(tag), adID)
	return nil
}

func (t *tx) commit() {
	db := t.db
	if t.counter != nil {
		db.nextAdID = *t.counter
	}
	for id, ad := range t.ads {
		if ad == nil {
			delete(db.ads, id)
			continue
		}
		db.ads[id] = *ad
	}
	for key, c := range t.comments {
		if c == nil {
			delete(db.comments, key)
			continue
		}
		db.comments[key] = *c
	}
	for tag, bucket := range t.tags {
		if len(bucket) == 0 {
			delete(db.tags, tag)
			continue
		}
		db.tags[tag] = bucket
	}
}

func cloneAd(ad domain.Ad) domain.Ad {
	ad.Tags = slices.Clone(ad.Tags)
	if ad.SelectedApplicant != nil {
		applicant := adz.AccountID(*ad.SelectedApplicant)
		ad.SelectedApplicant = &applicant
	}
	return ad
}

func sortedIDs(bucket map[uint32]struct{}) []uint32 {
	ids := make([]uint32, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
