package replicate

import "strings"

// Concurrency budgets by account tier. Plus-tier accounts are granted a
// larger leaky bucket by the remote, so they can carry more requests in
// flight without tripping harsher rate limiting.
const (
	budgetDefault = 40
	budgetPlus    = 80
)

// RateAllowance bounds the number of simultaneous in-flight requests the
// concurrent strategy may hold
type RateAllowance struct {
	ConcurrencyBudget int
}

// AllowanceFor derives the allowance from the account plan. A positive
// override wins over the plan-derived budget.
func AllowanceFor(plan string, override int) RateAllowance {
	if override > 0 {
		return RateAllowance{ConcurrencyBudget: override}
	}
	if strings.EqualFold(plan, "plus") {
		return RateAllowance{ConcurrencyBudget: budgetPlus}
	}
	return RateAllowance{ConcurrencyBudget: budgetDefault}
}
