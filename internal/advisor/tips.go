package advisor

type Tip struct {
	Category string `json:"category"`
	Tip      string `json:"tip"`
	Priority string `json:"priority"`
}

var tips = []Tip{
	{"Budgeting", "Follow the 50/30/20 rule: 50% for needs, 30% for wants, 20% for savings and investments.", "high"},
	{"Emergency Fund", "Build an emergency fund covering 6-12 months of essential expenses before investing.", "high"},
	{"Investing", "Start investing early to benefit from compound interest. Even small amounts can grow significantly over time.", "medium"},
	{"Diversification", "Don't put all your eggs in one basket. Diversify across asset classes and sectors.", "medium"},
	{"Debt Management", "Pay off high-interest debt (like credit cards) before investing in lower-return assets.", "high"},
	{"Tax Planning", "Utilize tax-saving instruments like ELSS, PPF, and NPS to reduce your tax burden.", "medium"},
}

// FinancialTips returns the fixed tips in display order. The slice is a copy.
func FinancialTips() []Tip {
	return append([]Tip(nil), tips...)
}
