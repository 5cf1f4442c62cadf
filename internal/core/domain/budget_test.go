package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBudgetPolicy_Allowance_Precedence tests principal > role > global resolution
func TestBudgetPolicy_Allowance_Precedence(t *testing.T) {
	p := BudgetPolicy{
		DailyTokens:          1000,
		RoleDailyTokens:      map[string]int64{"editor": 5000},
		PrincipalDailyTokens: map[string]int64{"alice": 200},
	}

	// Principal override beats the role default.
	assert.Equal(t, int64(200), p.Allowance("alice", "editor"))

	// Role default beats the global default.
	assert.Equal(t, int64(5000), p.Allowance("bob", "editor"))

	// Global default applies when nothing matches.
	assert.Equal(t, int64(1000), p.Allowance("bob", "viewer"))
	assert.Equal(t, int64(1000), p.Allowance("", ""))
}

// TestBudgetPolicy_Allowance_EmptyIdentity tests that empty identities never match overrides
func TestBudgetPolicy_Allowance_EmptyIdentity(t *testing.T) {
	p := BudgetPolicy{
		DailyTokens:          100,
		RoleDailyTokens:      map[string]int64{"": 1},
		PrincipalDailyTokens: map[string]int64{"": 2},
	}

	assert.Equal(t, int64(100), p.Allowance("", ""))
}

// TestUnlimited tests the unlimited sentinel
func TestUnlimited(t *testing.T) {
	assert.True(t, Unlimited(0))
	assert.True(t, Unlimited(-5))
	assert.False(t, Unlimited(1))
}
