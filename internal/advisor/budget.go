package advisor

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

type BudgetShare struct {
	Amount      float64 `json:"amount"`
	Percentage  int     `json:"percentage"`
	Description string  `json:"description"`
}

type BudgetAllocations struct {
	Needs              BudgetShare `json:"needs"`
	Wants              BudgetShare `json:"wants"`
	SavingsInvestments BudgetShare `json:"savings_investments"`
}

type BudgetPlan struct {
	MonthlyIncome   float64           `json:"monthly_income"`
	Allocations     BudgetAllocations `json:"allocations"`
	Recommendations []string          `json:"recommendations"`
}

// Budget applies the 50/30/20 rule to a monthly income. Savings take the
// remainder, so the three amounts add up to income exactly.
func Budget(income float64) BudgetPlan {
	total := decimal.NewFromFloat(income)
	needs := total.Mul(decimal.NewFromInt(50)).Div(hundred)
	wants := total.Mul(decimal.NewFromInt(30)).Div(hundred)
	savings := total.Sub(needs).Sub(wants)

	emergency := needs.Mul(decimal.NewFromInt(6))
	equity := savings.Mul(decimal.RequireFromString("0.7"))
	deposits := savings.Mul(decimal.RequireFromString("0.3"))

	return BudgetPlan{
		MonthlyIncome: income,
		Allocations: BudgetAllocations{
			Needs: BudgetShare{
				Amount:      needs.InexactFloat64(),
				Percentage:  50,
				Description: "Essential expenses like rent, utilities, groceries, insurance",
			},
			Wants: BudgetShare{
				Amount:      wants.InexactFloat64(),
				Percentage:  30,
				Description: "Entertainment, dining out, hobbies, non-essential shopping",
			},
			SavingsInvestments: BudgetShare{
				Amount:      savings.InexactFloat64(),
				Percentage:  20,
				Description: "Emergency fund, retirement savings, investments",
			},
		},
		Recommendations: []string{
			fmt.Sprintf("Build an emergency fund of ₹%s (6 months of essential expenses)", rupees(emergency)),
			fmt.Sprintf("Consider investing ₹%s in equity mutual funds for long-term growth", rupees(equity)),
			fmt.Sprintf("Keep ₹%s in fixed deposits or liquid funds for short-term goals", rupees(deposits)),
		},
	}
}

// rupees renders a whole amount with comma thousands separators, rounding
// half to even. Amounts beyond int64 are formatted exactly.
func rupees(d decimal.Decimal) string {
	return humanize.BigComma(d.RoundBank(0).BigInt())
}
