package domain

// BudgetPolicy resolves the daily embedding-token allowance. The quota
// subsystem feeding it distinguishes a global default, per-role
// defaults and per-principal overrides; an individual override always
// beats the role default, which beats the global default.
type BudgetPolicy struct {
	// DailyTokens is the global default allowance. Zero or negative
	// means unlimited.
	DailyTokens int64

	// RoleDailyTokens overrides the global default per role name.
	RoleDailyTokens map[string]int64

	// PrincipalDailyTokens overrides everything per principal id.
	PrincipalDailyTokens map[string]int64
}

// Unlimited reports whether a resolved allowance means "no cap".
func Unlimited(allowance int64) bool {
	return allowance <= 0
}

// Allowance resolves the daily allowance for a principal with a role.
// Precedence: principal override, then role default, then global.
func (p BudgetPolicy) Allowance(principal, role string) int64 {
	if v, ok := p.PrincipalDailyTokens[principal]; ok && principal != "" {
		return v
	}
	if v, ok := p.RoleDailyTokens[role]; ok && role != "" {
		return v
	}
	return p.DailyTokens
}
