package aggregate

import (
	"financehub/internal/core"
	"financehub/internal/ledger"

	"github.com/shopspring/decimal"
)

// MaxHealthScore is the upper bound of HealthScore.
const MaxHealthScore = 1000

type HealthBand string

const (
	BandCritical  HealthBand = "critico"
	BandAttention HealthBand = "atencao"
	BandGood      HealthBand = "bom"
	BandExcellent HealthBand = "excelente"
)

// Sub-score weights; they add up to MaxHealthScore.
var (
	weightBalance    = decimal.NewFromInt(250)
	weightSavings    = decimal.NewFromInt(350)
	weightDebtFree   = decimal.NewFromInt(250)
	weightInvestment = decimal.NewFromInt(150)
)

// bandFloors lists the lowest score of each band, best band first.
var bandFloors = []struct {
	min  int
	band HealthBand
}{
	{800, BandExcellent},
	{600, BandGood},
	{400, BandAttention},
	{0, BandCritical},
}

// Health is the financial health score with its sub-scores, each in [0, 1].
type Health struct {
	Score              int             `json:"score"`
	Band               HealthBand      `json:"band"`
	BalanceRatio       decimal.Decimal `json:"balance_ratio"`
	SavingsRate        decimal.Decimal `json:"savings_rate"`
	DebtFreedom        decimal.Decimal `json:"debt_freedom"`
	InvestmentPresence decimal.Decimal `json:"investment_presence"`
}

func BandFor(score int) HealthBand {
	for _, b := range bandFloors {
		if score >= b.min {
			return b.band
		}
	}
	return BandCritical
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(d, decimal.Zero), decimal.NewFromInt(1))
}

// ratio divides two cent amounts; a zero or negative denominator yields zero.
func ratio(num, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return clampUnit(decimal.NewFromInt(num).Div(decimal.NewFromInt(den)))
}

// HealthScore combines four sub-scores into a 0-1000 score:
//   - balance ratio: live balance over all money ever received,
//   - savings rate: (income - expenses) / income for today's month,
//   - debt freedom: share already paid of the active debts, 1 with none,
//   - investment presence: 1 when any investment holds value.
//
// The weighted sum is floored, so a result sitting between two integers
// always lands in the lower one.
func HealthScore(s *ledger.Snapshot, today core.Date) Health {
	sum := ComputeSummary(s, today)

	var inflow int64
	for _, t := range s.Transactions {
		if !t.IsDeleted() && t.Type == core.TypeIncome {
			inflow += t.Amount.Cents
		}
	}

	var paid, owed int64
	for _, d := range s.Debts {
		if d.Status == core.DebtActive {
			paid += d.PaidAmount.Cents
			owed += d.TotalAmount.Cents
		}
	}
	debtFreedom := decimal.NewFromInt(1)
	if owed > 0 {
		debtFreedom = ratio(paid, owed)
	}

	investments := decimal.Zero
	for _, inv := range s.Investments {
		if inv.CurrentValue.IsPositive() {
			investments = decimal.NewFromInt(1)
			break
		}
	}

	h := Health{
		BalanceRatio:       ratio(sum.TotalBalance.Cents, inflow),
		SavingsRate:        ratio(sum.MonthlyIncome.Cents-sum.MonthlyExpenses.Cents, sum.MonthlyIncome.Cents),
		DebtFreedom:        debtFreedom,
		InvestmentPresence: investments,
	}
	total := h.BalanceRatio.Mul(weightBalance).
		Add(h.SavingsRate.Mul(weightSavings)).
		Add(h.DebtFreedom.Mul(weightDebtFree)).
		Add(h.InvestmentPresence.Mul(weightInvestment)).
		Floor()
	h.Score = int(total.IntPart())
	h.Score = min(max(h.Score, 0), MaxHealthScore)
	h.Band = BandFor(h.Score)
	return h
}
