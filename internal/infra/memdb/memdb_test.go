package memdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

func TestAtomicCommits(t *testing.T) {
	ctx := context.Background()
	db := New()

	err := db.Atomic(ctx, func(tx usecase.Tx) error {
		require.NoError(t, tx.PutAd(domain.Ad{ID: 0, Author: "con1a", Tags: []string{"t"}}))
		require.NoError(t, tx.AddToTag("t", 0))
		require.NoError(t, tx.PutComment(domain.Comment{AdID: 0, CommentID: 0, Author: "con1b"}))
		return tx.SetAdCounter(1)
	})
	require.NoError(t, err)

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), snap.NextAdID)
	assert.Len(t, snap.Ads, 1)
	assert.Len(t, snap.Comments, 1)
	assert.Equal(t, map[string][]uint32{"t": {0}}, snap.Tags)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := New()

	require.NoError(t, db.Atomic(ctx, func(tx usecase.Tx) error {
		if err := tx.PutAd(domain.Ad{ID: 0, Author: "con1a", Title: "kept"}); err != nil {
			return err
		}
		return tx.AddToTag("keep", 0)
	}))
	before, err := db.Snapshot(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Atomic(ctx, func(tx usecase.Tx) error {
		require.NoError(t, tx.PutAd(domain.Ad{ID: 0, Author: "con1a", Title: "overwritten"}))
		require.NoError(t, tx.PutAd(domain.Ad{ID: 1, Author: "con1a"}))
		require.NoError(t, tx.RemoveFromTag("keep", 0))
		require.NoError(t, tx.AddToTag("new", 1))
		require.NoError(t, tx.SetAdCounter(2))
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, before.Digest(), after.Digest())
}

func TestStagedReadsSeeOwnWrites(t *testing.T) {
	ctx := context.Background()
	db := New()

	err := db.Atomic(ctx, func(tx usecase.Tx) error {
		require.NoError(t, tx.PutAd(domain.Ad{ID: 4, Author: "con1a"}))
		ad, err := tx.GetAd(4)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), ad.ID)

		require.NoError(t, tx.DeleteAd(4))
		_, err = tx.GetAd(4)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, tx.AddToTag("x", 4))
		require.NoError(t, tx.AddToTag("x", 2))
		ids, err := tx.TagBucket("x")
		require.NoError(t, err)
		assert.Equal(t, []uint32{2, 4}, ids)

		require.NoError(t, tx.RemoveFromTag("x", 4))
		require.NoError(t, tx.RemoveFromTag("x", 2))
		return nil
	})
	require.NoError(t, err)

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Ads)
	assert.Empty(t, snap.Tags)
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	db := New()

	err := db.Atomic(ctx, func(tx usecase.Tx) error {
		return tx.DeleteAd(9)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = db.Atomic(ctx, func(tx usecase.Tx) error {
		return tx.DeleteComment(9, 0)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReturnedAdsAreCopies(t *testing.T) {
	ctx := context.Background()
	db := New()

	require.NoError(t, db.Atomic(ctx, func(tx usecase.Tx) error {
		return tx.PutAd(domain.Ad{ID: 0, Author: "con1a", Tags: []string{"a"}})
	}))

	require.NoError(t, db.Atomic(ctx, func(tx usecase.Tx) error {
		ad, err := tx.GetAd(0)
		if err != nil {
			return err
		}
		ad.Tags[0] = "mutated"
		return nil
	}))

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, snap.Ads[0].Tags)
}

func TestInsertAdRefusesTakenID(t *testing.T) {
	ctx := context.Background()
	db := New()

	require.NoError(t, db.Atomic(ctx, func(tx usecase.Tx) error {
		return tx.InsertAd(domain.Ad{ID: 0, Author: "con1a", Title: "first"})
	}))

	err := db.Atomic(ctx, func(tx usecase.Tx) error {
		return tx.InsertAd(domain.Ad{ID: 0, Author: "con1b", Title: "second"})
	})
	require.Error(t, err)

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Ads, 1)
	assert.Equal(t, "first", snap.Ads[0].Title)
}
