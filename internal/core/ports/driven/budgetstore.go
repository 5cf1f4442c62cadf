package driven

import "context"

// BudgetStore is the consumed quota signal for embedding spend. The
// pipeline never bills anything; it only asks what remains today and
// records what it used.
type BudgetStore interface {
	// Remaining returns the embedding-token allowance left for the day
	// (formatted 2006-01-02, UTC). A negative value means unlimited.
	Remaining(ctx context.Context, day string) (int64, error)

	// Spend records token usage against the day's ledger.
	Spend(ctx context.Context, day string, tokens int64) error
}
