package gateway

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// Bank is an in-process balance table standing in for the host ledger on standalone nodes.
type Bank struct {
	mu       sync.Mutex
	balances map[adz.AccountID]adz.Amount
	applied  map[string]struct{}
}

func NewBank() *Bank {
	return &Bank{
		balances: make(map[adz.AccountID]adz.Amount),
		applied:  make(map[string]struct{}),
	}
}

func (b *Bank) Credit(account adz.AccountID, amount adz.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

func (b *Bank) Balance(account adz.AccountID) adz.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// Transfer applies a reference once; repeating it is a no-op. An empty reference is never deduplicated.
func (b *Bank) Transfer(ctx context.Context, reference string, from, to adz.AccountID, amount adz.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, done := b.applied[reference]; done && reference != "" {
		return nil
	}
	if b.balances[from] < amount {
		return domain.InsufficientFundsError{From: from, Amount: amount}
	}
	if from != to {
		if b.balances[to]+amount < b.balances[to] {
			return errors.Errorf("balance overflow on %s", to)
		}
		b.balances[from] -= amount
		b.balances[to] += amount
	}
	if reference != "" {
		b.applied[reference] = struct{}{}
	}
	return nil
}
