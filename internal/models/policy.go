package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxPoliciesPerUser caps how many policies a user may hold at once.
const MaxPoliciesPerUser = 2

// Policy is a static, pre-seeded investment product description.
type Policy struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RiskLevel      string          `json:"risk_level"`
	ExpectedReturn string          `json:"expected_return"`
	MinInvestment  decimal.Decimal `json:"min_investment"`
	Description    string          `json:"description"`
	Goal           string          `json:"goal"`
	LockInYears    int             `json:"lock_in_years"`
	Liquidity      string          `json:"liquidity"`
}

// UserPolicy records a user's opt-in enrollment into a policy.
type UserPolicy struct {
	UserID     int64     `json:"user_id"`
	PolicyID   int64     `json:"policy_id"`
	InvestedAt time.Time `json:"invested_at"`
}

// PolicyCatalog returns the fixed eight-product catalog. Both storage
// backends seed from this slice so the reference data has one source.
func PolicyCatalog() []Policy {
	return []Policy{
		{ID: 1, Name: "Secure Growth Fixed Deposit", RiskLevel: "Low", ExpectedReturn: "4.2% p.a.", MinInvestment: decimal.NewFromInt(500), Description: "Capital-guaranteed deposit with a fixed annual rate.", Goal: "Capital preservation", LockInYears: 1, Liquidity: "Low"},
		{ID: 2, Name: "Government Bond Ladder", RiskLevel: "Low", ExpectedReturn: "5.1% p.a.", MinInvestment: decimal.NewFromInt(1000), Description: "Staggered sovereign bonds maturing every twelve months.", Goal: "Steady income", LockInYears: 3, Liquidity: "Medium"},
		{ID: 3, Name: "Balanced Index Portfolio", RiskLevel: "Medium", ExpectedReturn: "7.5% p.a.", MinInvestment: decimal.NewFromInt(250), Description: "60/40 split across broad equity and bond index funds.", Goal: "Long-term growth", LockInYears: 0, Liquidity: "High"},
		{ID: 4, Name: "Dividend Aristocrats Fund", RiskLevel: "Medium", ExpectedReturn: "6.8% p.a.", MinInvestment: decimal.NewFromInt(750), Description: "Blue-chip equities with a long dividend growth record.", Goal: "Income plus growth", LockInYears: 0, Liquidity: "High"},
		{ID: 5, Name: "Real Estate Income Trust", RiskLevel: "Medium", ExpectedReturn: "8.0% p.a.", MinInvestment: decimal.NewFromInt(2000), Description: "Commercial property trust distributing rental income quarterly.", Goal: "Passive income", LockInYears: 2, Liquidity: "Medium"},
		{ID: 6, Name: "Emerging Markets Equity", RiskLevel: "High", ExpectedReturn: "11.5% p.a.", MinInvestment: decimal.NewFromInt(1500), Description: "Growth equities across developing economies.", Goal: "Aggressive growth", LockInYears: 0, Liquidity: "High"},
		{ID: 7, Name: "Technology Momentum Fund", RiskLevel: "High", ExpectedReturn: "13.2% p.a.", MinInvestment: decimal.NewFromInt(1000), Description: "Concentrated positions in large-cap technology leaders.", Goal: "Aggressive growth", LockInYears: 0, Liquidity: "High"},
		{ID: 8, Name: "Frontier Ventures Basket", RiskLevel: "Very High", ExpectedReturn: "18.0% p.a.", MinInvestment: decimal.NewFromInt(5000), Description: "Early-stage ventures and alternative assets; values can swing sharply.", Goal: "Speculative upside", LockInYears: 5, Liquidity: "Very Low"},
	}
}
