package usecase

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

var ErrCommentIDExhausted = errors.New("comment id space exhausted")

type CommentUsecase struct {
	store  Store
	clock  Clock
	sink   EventSink
	logger *zap.Logger
}

func NewCommentUsecase(store Store, clock Clock, sink EventSink, logger *zap.Logger) *CommentUsecase {
	return &CommentUsecase{
		store:  store,
		clock:  clock,
		sink:   sink,
		logger: logger,
	}
}

// Create attaches a comment to an existing ad. The ad's comment counter supplies the id.
func (uc *CommentUsecase) Create(ctx context.Context, caller adz.AccountID, adID uint32, body string) (uint32, error) {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Create")
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

	var commentID uint32
	err = uc.store.Atomic(ctx, func(tx Tx) error {
		ad, err := tx.GetAd(adID)
		if err != nil {
			return err
		}
		if ad.NumOfComments == math.MaxUint32 {
			return ErrCommentIDExhausted
		}

		comment := domain.Comment{
			AdID:      adID,
			CommentID: ad.NumOfComments,
			Author:    caller,
			Body:      body,
			Created:   now,
		}
		if err := tx.PutComment(comment); err != nil {
			return err
		}

		ad.NumOfComments++
		if err := tx.PutAd(ad); err != nil {
			return err
		}

		commentID = comment.CommentID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("create comment rejected", zap.String("caller", string(caller)), zap.Uint32("ad_id", adID), zap.Error(err))
		return 0, err
	}

	uc.logger.Info("comment created",
		zap.String("caller", string(caller)),
		zap.Uint32("ad_id", adID),
		zap.Uint32("comment_id", commentID),
	)
	emit(ctx, uc.sink, uc.logger, commentEvent(adz.EventCommentCreated, caller, adID, commentID))

	return commentID, nil
}

func (uc *CommentUsecase) Update(ctx context.Context, caller adz.AccountID, adID, commentID uint32, body string) error {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Update")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return err
	}

	err := uc.store.Atomic(ctx, func(tx Tx) error {
		return updateIf(caller,
			func() (domain.Comment, error) { return tx.GetComment(adID, commentID) },
			func(c *domain.Comment) error {
				c.Body = body
				return nil
			},
			tx.PutComment,
		)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("update comment rejected",
			zap.String("caller", string(caller)),
			zap.Uint32("ad_id", adID),
			zap.Uint32("comment_id", commentID),
			zap.Error(err),
		)
		return err
	}

	uc.logger.Info("comment updated",
		zap.String("caller", string(caller)),
		zap.Uint32("ad_id", adID),
		zap.Uint32("comment_id", commentID),
	)
	emit(ctx, uc.sink, uc.logger, commentEvent(adz.EventCommentUpdated, caller, adID, commentID))

	return nil
}

// Delete removes a comment. The parent's counter is left alone so ids are never reused.
func (uc *CommentUsecase) Delete(ctx context.Context, caller adz.AccountID, adID, commentID uint32) error {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Delete")
	defer span.End()

	if err := checkCaller(caller); err != nil {
		span.RecordError(err)
		return err
	}

	err := uc.store.Atomic(ctx, func(tx Tx) error {
		comment, err := tx.GetComment(adID, commentID)
		if err != nil {
			return err
		}
		if _, err := domain.Authorize(caller, comment); err != nil {
			return err
		}
		return tx.DeleteComment(adID, commentID)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Debug("delete comment rejected",
			zap.String("caller", string(caller)),
			zap.Uint32("ad_id", adID),
			zap.Uint32("comment_id", commentID),
			zap.Error(err),
		)
		return err
	}

	uc.logger.Info("comment deleted",
		zap.String("caller", string(caller)),
		zap.Uint32("ad_id", adID),
		zap.Uint32("comment_id", commentID),
	)
	emit(ctx, uc.sink, uc.logger, commentEvent(adz.EventCommentDeleted, caller, adID, commentID))

	return nil
}
