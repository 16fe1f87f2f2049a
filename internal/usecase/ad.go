package usecase

import (
	"context"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

var ErrAdIDExhausted = errors.New("ad id space exhausted")

type AdUsecase struct {
	store         Store
	escrow        Escrow
	clock         Clock
	sink          EventSink
	escrowAccount adz.AccountID
	logger        *zap.Logger
}

func NewAdUsecase(
	store Store,
	escrow Escrow,
	clock Clock,
	sink EventSink,
	escrowAccount adz.AccountID,
	logger *zap.Logger,
) *AdUsecase {
	return &AdUsecase{
		store:         store,
		escrow:        escrow,
		clock:         clock,
		sink:          sink,
		escrowAccount: escrowAccount,
		logger:        logger,
	}
}

// Create posts a new ad, charging fee from caller into escrow.
func (uc *AdUsecase) Create(ctx context.Context, caller adz.AccountID, title, body string, tags []string, fee adz.Amount) (uint32, error) {
	ctx, span := tracer.Start(ctx, "Ad.Usecase.Create")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return 0, err
	}

	now, err := uc.clock.Now(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "clock unavailable")
	}

	// one reference per call; retries inside the gateway reuse it
	reference := transferReference(adz.EventAdCreated)

	var id uint32
	err = uc.store.Atomic(ctx, func(tx Tx) error {
		next, err := tx.AdCounter()
		if err != nil {
			return err
		}
		if next == math.MaxUint32 {
			return ErrAdIDExhausted
		}

		ad := domain.Ad{
			ID:      next,
			Author:  caller,
			Title:   title,
			Body:    body,
			Tags:    slices.Clone(tags),
			Created: now,
		}
		if err := tx.InsertAd(ad); err != nil {
			return err
		}
		if err := reconcile(tx, next, nil, ad.Tags); err != nil {
			return err
		}
		if err := tx.SetAdCounter(next + 1); err != nil {
			return err
		}

		// last fallible step: a failed transfer discards everything staged above
		if err := uc.escrow.Transfer(ctx, reference, caller, uc.escrowAccount, fee); err != nil {
			return err
		}

		id = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("create ad rejected", zap.String("caller", string(caller)), zap.Error(err))
		return 0, err
	}

	uc.logger.Info("ad created",
		zap.String("caller", string(caller)),
		zap.Uint32("ad_id", id),
		zap.Uint64("fee", uint64(fee)),
	)
	emit(ctx, uc.sink, uc.logger, adz.Event{Kind: adz.EventAdCreated, Account: caller, AdID: id})

	return id, nil
}

// Update replaces title, body and tags of an ad authored by caller.
func (uc *AdUsecase) Update(ctx context.Context, caller adz.AccountID, id uint32, title, body string, tags []string) error {
	ctx, span := tracer.Start(ctx, "Ad.Usecase.Update")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return err
	}

	err := uc.store.Atomic(ctx, func(tx Tx) error {
		return updateIf(caller,
			func() (domain.Ad, error) { return tx.GetAd(id) },
			func(ad *domain.Ad) error {
				newTags := slices.Clone(tags)
				if err := reconcile(tx, ad.ID, ad.Tags, newTags); err != nil {
					return err
				}
				ad.Title = title
				ad.Body = body
				ad.Tags = newTags
				return nil
			},
			tx.PutAd,
		)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("update ad rejected", zap.String("caller", string(caller)), zap.Uint32("ad_id", id), zap.Error(err))
		return err
	}

	uc.logger.Info("ad updated", zap.String("caller", string(caller)), zap.Uint32("ad_id", id))
	emit(ctx, uc.sink, uc.logger, adz.Event{Kind: adz.EventAdUpdated, Account: caller, AdID: id})

	return nil
}

// Delete removes an ad and prunes it from the tag index. Its comments stay where they are.
func (uc *AdUsecase) Delete(ctx context.Context, caller adz.AccountID, id uint32) error {
	ctx, span := tracer.Start(ctx, "Ad.Usecase.Delete")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return err
	}

	err := uc.store.Atomic(ctx, func(tx Tx) error {
		ad, err := tx.GetAd(id)
		if err != nil {
			return err
		}
		if _, err := domain.Authorize(caller, ad); err != nil {
			return err
		}
		if err := reconcile(tx, ad.ID, ad.Tags, nil); err != nil {
			return err
		}
		return tx.DeleteAd(ad.ID)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("delete ad rejected", zap.String("caller", string(caller)), zap.Uint32("ad_id", id), zap.Error(err))
		return err
	}

	uc.logger.Info("ad deleted", zap.String("caller", string(caller)), zap.Uint32("ad_id", id))
	emit(ctx, uc.sink, uc.logger, adz.Event{Kind: adz.EventAdDeleted, Account: caller, AdID: id})

	return nil
}

// SelectApplicant records the chosen applicant and releases fee from escrow to the caller.
func (uc *AdUsecase) SelectApplicant(ctx context.Context, caller adz.AccountID, id uint32, applicant adz.AccountID, fee adz.Amount) error {
	ctx, span := tracer.Start(ctx, "Ad.Usecase.SelectApplicant")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return err
	}
	if applicant == "" {
		err := domain.InvalidCallError{Reason: "missing applicant"}
		span.RecordError(err)
		return err
	}

	reference := transferReference(adz.EventApplicantSelected)

	err := uc.store.Atomic(ctx, func(tx Tx) error {
		err := updateIf(caller,
			func() (domain.Ad, error) { return tx.GetAd(id) },
			func(ad *domain.Ad) error {
				selected := applicant
				ad.SelectedApplicant = &selected
				return nil
			},
			tx.PutAd,
		)
		if err != nil {
			return err
		}

		// TODO: confirm with product whether the reward should go to the applicant instead of the author
		return uc.escrow.Transfer(ctx, reference, uc.escrowAccount, caller, fee)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("select applicant rejected", zap.String("caller", string(caller)), zap.Uint32("ad_id", id), zap.Error(err))
		return err
	}

	uc.logger.Info("applicant selected",
		zap.String("caller", string(caller)),
		zap.Uint32("ad_id", id),
		zap.String("applicant", string(applicant)),
		zap.Uint64("fee", uint64(fee)),
	)
	emit(ctx, uc.sink, uc.logger, adz.Event{Kind: adz.EventApplicantSelected, Account: caller, AdID: id})

	return nil
}

func transferReference(kind adz.EventKind) string {
	return string(kind) + "/" + uuid.NewString()
}
