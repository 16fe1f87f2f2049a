package usecase

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/schemas"
)

// Receipt tells the host which ids an applied transaction touched.
type Receipt struct {
	Call      string  `json:"call"`
	AdID      uint32  `json:"adID"`
	CommentID *uint32 `json:"commentID,omitempty"`
}

// Dispatcher routes one accepted transaction to exactly one operation.
type Dispatcher struct {
	ad      *AdUsecase
	comment *CommentUsecase
}

func NewDispatcher(ad *AdUsecase, comment *CommentUsecase) *Dispatcher {
	return &Dispatcher{
		ad:      ad,
		comment: comment,
	}
}

func (d *Dispatcher) Apply(ctx context.Context, caller adz.AccountID, txn adz.Transaction) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Apply")
	defer span.End()

	receipt := Receipt{Call: txn.Call}

	switch txn.Call {
	case schemas.CreateAdCall:
		var args schemas.CreateAd
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		id, err := d.ad.Create(ctx, caller, args.Title, args.Body, args.Tags, args.Fee)
		if err != nil {
			return receipt, err
		}
		receipt.AdID = id

	case schemas.UpdateAdCall:
		var args schemas.UpdateAd
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		if err := d.ad.Update(ctx, caller, args.AdID, args.Title, args.Body, args.Tags); err != nil {
			return receipt, err
		}

	case schemas.DeleteAdCall:
		var args schemas.DeleteAd
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		if err := d.ad.Delete(ctx, caller, args.AdID); err != nil {
			return receipt, err
		}

	case schemas.SelectApplicantCall:
		var args schemas.SelectApplicant
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		if err := d.ad.SelectApplicant(ctx, caller, args.AdID, args.Applicant, args.Fee); err != nil {
			return receipt, err
		}

	case schemas.CreateCommentCall:
		var args schemas.CreateComment
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		cid, err := d.comment.Create(ctx, caller, args.AdID, args.Body)
		if err != nil {
			return receipt, err
		}
		receipt.CommentID = &cid

	case schemas.UpdateCommentCall:
		var args schemas.UpdateComment
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		receipt.CommentID = &args.CommentID
		if err := d.comment.Update(ctx, caller, args.AdID, args.CommentID, args.Body); err != nil {
			return receipt, err
		}

	case schemas.DeleteCommentCall:
		var args schemas.DeleteComment
		if err := decodeArgs(txn.Args, &args); err != nil {
			return receipt, err
		}
		receipt.AdID = args.AdID
		receipt.CommentID = &args.CommentID
		if err := d.comment.Delete(ctx, caller, args.AdID, args.CommentID); err != nil {
			return receipt, err
		}

	default:
		err := domain.InvalidCallError{Reason: "unknown call " + txn.Call}
		span.RecordError(err)
		return receipt, err
	}

	return receipt, nil
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return domain.InvalidCallError{Reason: "missing args"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.InvalidCallError{Reason: err.Error()}
	}
	return nil
}
