package usecase_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/internal/infra/gateway"
	"github.com/totegamma/concrnt-adz/internal/infra/memdb"
	"github.com/totegamma/concrnt-adz/internal/service"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

const (
	alice adz.AccountID = "con1alice"
	bob   adz.AccountID = "con1bob"
)

type fixture struct {
	store   *memdb.MemDB
	bank    *gateway.Bank
	clock   *gateway.ManualClock
	events  *service.EventLog
	escrow  adz.AccountID
	ad      *usecase.AdUsecase
	comment *usecase.CommentUsecase
	query   *usecase.QueryUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	escrow, err := adz.ModuleAccount(adz.DefaultModuleID)
	require.NoError(t, err)

	f := &fixture{
		store:  memdb.New(),
		bank:   gateway.NewBank(),
		clock:  gateway.NewManualClock(1000),
		events: service.NewEventLog(),
		escrow: escrow,
	}
	f.bank.Credit(alice, 100)
	f.bank.Credit(bob, 100)

	logger := zap.NewNop()
	f.query = usecase.NewQueryUsecase(f.store, nil, logger)
	sink := service.MultiSink{f.events, f.query}
	f.ad = usecase.NewAdUsecase(f.store, f.bank, f.clock, sink, escrow, logger)
	f.comment = usecase.NewCommentUsecase(f.store, f.clock, sink, logger)
	return f
}

func (f *fixture) digest(t *testing.T) string {
	t.Helper()
	d, err := f.query.Digest(context.Background())
	require.NoError(t, err)
	return d
}

// assertIndexConsistent checks that every bucket holds exactly the live ads carrying its tag.
func (f *fixture) assertIndexConsistent(t *testing.T) {
	t.Helper()
	snap, err := f.query.Snapshot(context.Background())
	require.NoError(t, err)

	want := map[string][]uint32{}
	for _, ad := range snap.Ads {
		seen := map[string]bool{}
		for _, tag := range ad.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			want[tag] = append(want[tag], ad.ID)
		}
	}
	for tag := range want {
		sort.Slice(want[tag], func(i, j int) bool { return want[tag][i] < want[tag][j] })
	}

	for tag, ids := range snap.Tags {
		assert.NotEmpty(t, ids, "empty bucket %q", tag)
	}
	assert.Equal(t, len(want), len(snap.Tags))
	for tag, ids := range want {
		assert.Equal(t, ids, snap.Tags[tag], "bucket %q", tag)
	}
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.ad.Create(ctx, alice, "guitar lessons", "weekly", []string{"music"}, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	ids, err := f.query.AdsByTag(ctx, "music")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, ids)

	err = f.ad.Update(ctx, alice, 0, "painting lessons", "weekly", []string{"art"})
	require.NoError(t, err)

	snap, err := f.query.Snapshot(ctx)
	require.NoError(t, err)
	_, hasMusic := snap.Tags["music"]
	assert.False(t, hasMusic)
	assert.Equal(t, []uint32{0}, snap.Tags["art"])

	cid, err := f.comment.Create(ctx, bob, 0, "nice")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cid)

	ad, err := f.query.GetAd(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ad.NumOfComments)

	err = f.ad.Delete(ctx, alice, 0)
	require.NoError(t, err)

	_, err = f.query.GetAd(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap, err = f.query.Snapshot(ctx)
	require.NoError(t, err)
	_, hasArt := snap.Tags["art"]
	assert.False(t, hasArt)

	// comments are not cascaded
	comment, err := f.query.GetComment(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Body)
}

func TestNonAuthorUpdateRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "bike", "red", []string{"sale"}, 5)
	require.NoError(t, err)
	before := f.digest(t)

	err = f.ad.Update(ctx, bob, 0, "stolen", "mine now", []string{"free"})
	assert.ErrorIs(t, err, domain.ErrNotAuthor)

	err = f.ad.Delete(ctx, bob, 0)
	assert.ErrorIs(t, err, domain.ErrNotAuthor)

	err = f.ad.SelectApplicant(ctx, bob, 0, bob, 5)
	assert.ErrorIs(t, err, domain.ErrNotAuthor)

	assert.Equal(t, before, f.digest(t))
	assert.Equal(t, adz.Amount(5), f.bank.Balance(f.escrow))

	ad, err := f.query.GetAd(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "bike", ad.Title)
	assert.Equal(t, alice, ad.Author)
}

func TestAdIDsMonotonicAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for want := uint32(0); want < 5; want++ {
		id, err := f.ad.Create(ctx, alice, "t", "b", nil, 1)
		require.NoError(t, err)
		assert.Equal(t, want, id)

		if want%2 == 0 {
			require.NoError(t, f.ad.Delete(ctx, alice, id))
		}
	}

	snap, err := f.query.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), snap.NextAdID)
	assert.Len(t, snap.Ads, 2)
}

func TestTagIndexConsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "a", "", []string{"x", "y"}, 0)
	require.NoError(t, err)
	_, err = f.ad.Create(ctx, bob, "b", "", []string{"y", "y", "z"}, 0)
	require.NoError(t, err)
	f.assertIndexConsistent(t)

	require.NoError(t, f.ad.Update(ctx, alice, 0, "a", "", []string{"z"}))
	f.assertIndexConsistent(t)

	require.NoError(t, f.ad.Update(ctx, bob, 1, "b", "", nil))
	f.assertIndexConsistent(t)

	require.NoError(t, f.ad.Delete(ctx, alice, 0))
	f.assertIndexConsistent(t)

	snap, err := f.query.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tags)

	ids, err := f.query.AdsByTag(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, []uint32{}, ids)
}

func TestCreateAdInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "ok", "", []string{"music"}, 10)
	require.NoError(t, err)
	before := f.digest(t)
	emitted := f.events.Len()

	_, err = f.ad.Create(ctx, alice, "too expensive", "", []string{"music", "art"}, 1000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, before, f.digest(t))
	assert.Equal(t, emitted, f.events.Len())
	assert.Equal(t, adz.Amount(90), f.bank.Balance(alice))

	// the failed attempt did not consume an id
	id, err := f.ad.Create(ctx, alice, "next", "", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
}

func TestSelectApplicantReleasesEscrow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "job", "", nil, 30)
	require.NoError(t, err)
	assert.Equal(t, adz.Amount(70), f.bank.Balance(alice))
	assert.Equal(t, adz.Amount(30), f.bank.Balance(f.escrow))

	err = f.ad.SelectApplicant(ctx, alice, 0, bob, 30)
	require.NoError(t, err)

	assert.Equal(t, adz.Amount(100), f.bank.Balance(alice))
	assert.Equal(t, adz.Amount(0), f.bank.Balance(f.escrow))

	ad, err := f.query.GetAd(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, ad.SelectedApplicant)
	assert.Equal(t, bob, *ad.SelectedApplicant)
}

func TestSelectApplicantEscrowShortfall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "job", "", nil, 10)
	require.NoError(t, err)
	before := f.digest(t)

	err = f.ad.SelectApplicant(ctx, alice, 0, bob, 50)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, before, f.digest(t))
	ad, err := f.query.GetAd(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, ad.SelectedApplicant)
}

func TestMissingRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.ad.Update(ctx, alice, 7, "", "", nil), domain.ErrNotFound)
	assert.ErrorIs(t, f.ad.Delete(ctx, alice, 7), domain.ErrNotFound)
	assert.ErrorIs(t, f.ad.SelectApplicant(ctx, alice, 7, bob, 0), domain.ErrNotFound)

	_, err := f.comment.Create(ctx, alice, 7, "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.comment.Update(ctx, alice, 7, 0, "hi"), domain.ErrNotFound)
	assert.ErrorIs(t, f.comment.Delete(ctx, alice, 7, 0), domain.ErrNotFound)

	assert.Equal(t, 0, f.events.Len())
}

func TestCommentIDsScopedPerAd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "first", "", nil, 0)
	require.NoError(t, err)
	_, err = f.ad.Create(ctx, alice, "second", "", nil, 0)
	require.NoError(t, err)

	c0, err := f.comment.Create(ctx, bob, 0, "one")
	require.NoError(t, err)
	c1, err := f.comment.Create(ctx, bob, 0, "two")
	require.NoError(t, err)
	other, err := f.comment.Create(ctx, alice, 1, "elsewhere")
	require.NoError(t, err)

	assert.Equal(t, uint32(0), c0)
	assert.Equal(t, uint32(1), c1)
	assert.Equal(t, uint32(0), other)

	require.NoError(t, f.comment.Delete(ctx, bob, 0, c1))

	c2, err := f.comment.Create(ctx, bob, 0, "three")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), c2)

	_, err = f.query.GetComment(ctx, 0, c1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommentAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "ad", "", nil, 0)
	require.NoError(t, err)
	cid, err := f.comment.Create(ctx, bob, 0, "hello")
	require.NoError(t, err)
	before := f.digest(t)

	// the ad's author does not own the comment
	assert.ErrorIs(t, f.comment.Update(ctx, alice, 0, cid, "edited"), domain.ErrNotAuthor)
	assert.ErrorIs(t, f.comment.Delete(ctx, alice, 0, cid), domain.ErrNotAuthor)
	assert.Equal(t, before, f.digest(t))

	require.NoError(t, f.comment.Update(ctx, bob, 0, cid, "edited"))
	comment, err := f.query.GetComment(ctx, 0, cid)
	require.NoError(t, err)
	assert.Equal(t, "edited", comment.Body)
	assert.Equal(t, bob, comment.Author)
}

func TestCreateCapturesClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "ad", "", nil, 0)
	require.NoError(t, err)
	f.clock.Advance(500)
	_, err = f.comment.Create(ctx, bob, 0, "later")
	require.NoError(t, err)
	f.clock.Advance(500)
	require.NoError(t, f.ad.Update(ctx, alice, 0, "ad v2", "", nil))

	ad, err := f.query.GetAd(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), ad.Created)

	comment, err := f.query.GetComment(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), comment.Created)
}

func TestEventsEmittedAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, alice, "ad", "", nil, 0)
	require.NoError(t, err)
	_, err = f.comment.Create(ctx, bob, 0, "hi")
	require.NoError(t, err)
	require.NoError(t, f.ad.SelectApplicant(ctx, alice, 0, bob, 0))
	require.ErrorIs(t, f.ad.Delete(ctx, bob, 0), domain.ErrNotAuthor)

	events, err := f.events.Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, adz.EventAdCreated, events[0].Kind)
	assert.Equal(t, alice, events[0].Account)
	assert.Nil(t, events[0].CommentID)

	assert.Equal(t, adz.EventCommentCreated, events[1].Kind)
	assert.Equal(t, bob, events[1].Account)
	require.NotNil(t, events[1].CommentID)
	assert.Equal(t, uint32(0), *events[1].CommentID)

	assert.Equal(t, adz.EventApplicantSelected, events[2].Kind)
}

type brokenSink struct{}

func (brokenSink) Emit(ctx context.Context, event adz.Event) error {
	return errors.New("sink offline")
}

func TestSinkFailureDoesNotUndoCommit(t *testing.T) {
	ctx := context.Background()
	store := memdb.New()
	bank := gateway.NewBank()
	bank.Credit(alice, 10)

	ad := usecase.NewAdUsecase(store, bank, gateway.NewManualClock(0), brokenSink{}, "con1escrow", zap.NewNop())
	id, err := ad.Create(ctx, alice, "ad", "", []string{"t"}, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, adz.Amount(10), bank.Balance("con1escrow"))
}

func TestMissingCaller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ad.Create(ctx, "", "ad", "", nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCall)
	assert.Equal(t, 0, f.events.Len())
}

func TestTagIndexConsistencyWithByteTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	raw := []string{"\xff\xfe", "\x00", "caf\xc3\xa9", "\xc3\x28", ""}

	_, err := f.ad.Create(ctx, alice, "\xff", "\x00", []string{raw[0], raw[1]}, 0)
	require.NoError(t, err)
	_, err = f.ad.Create(ctx, bob, "b", "", []string{raw[0], raw[2], raw[4]}, 0)
	require.NoError(t, err)
	f.assertIndexConsistent(t)

	require.NoError(t, f.ad.Update(ctx, alice, 0, "a", "", []string{raw[3], raw[0]}))
	f.assertIndexConsistent(t)

	require.NoError(t, f.ad.Delete(ctx, bob, 1))
	f.assertIndexConsistent(t)

	ids, err := f.query.AdsByTag(ctx, raw[0])
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, ids)

	require.NoError(t, f.ad.Delete(ctx, alice, 0))
	f.assertIndexConsistent(t)

	snap, err := f.query.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tags)
}
