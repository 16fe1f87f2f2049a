package gateway

import (
	"context"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/client"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// LedgerGateway exposes the host ledger's transfer and clock capabilities.
type LedgerGateway struct {
	client *client.Client
}

func NewLedgerGateway(cl *client.Client) *LedgerGateway {
	return &LedgerGateway{client: cl}
}

func (g *LedgerGateway) Transfer(ctx context.Context, reference string, from, to adz.AccountID, amount adz.Amount) error {
	err := g.client.Transfer(ctx, reference, from, to, amount)
	if errors.Is(err, client.ErrInsufficientFunds) {
		return domain.InsufficientFundsError{From: from, Amount: amount}
	}
	return err
}

func (g *LedgerGateway) Now(ctx context.Context) (uint64, error) {
	return g.client.Now(ctx)
}
