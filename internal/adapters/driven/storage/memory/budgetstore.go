package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure BudgetStore implements the interface.
var _ driven.BudgetStore = (*BudgetStore)(nil)

// BudgetStore is an in-memory implementation of driven.BudgetStore. The
// allowance is resolved once at construction from the policy and the
// installation's identity; the per-day ledger lives in a map.
type BudgetStore struct {
	mu        sync.Mutex
	allowance int64
	spent     map[string]int64
}

// NewBudgetStore creates an in-memory budget ledger for the given
// principal and role under the policy.
func NewBudgetStore(policy domain.BudgetPolicy, principal, role string) *BudgetStore {
	return &BudgetStore{
		allowance: policy.Allowance(principal, role),
		spent:     make(map[string]int64),
	}
}

// Remaining returns the allowance left for the day, negative for
// unlimited.
func (b *BudgetStore) Remaining(_ context.Context, day string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if domain.Unlimited(b.allowance) {
		return -1, nil
	}
	left := b.allowance - b.spent[day]
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Spend records token usage against the day's ledger.
func (b *BudgetStore) Spend(_ context.Context, day string, tokens int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent[day] += tokens
	return nil
}

// Spent reports the ledger total for a day.
func (b *BudgetStore) Spent(day string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent[day]
}
