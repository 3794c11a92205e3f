package commissions

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Commission rule: 25% of monthly sales, plus 5% of the whole amount once
// sales exceed the bonus threshold (strictly greater than). Thresholds and
// sales are whole KRW.
const BonusThreshold = 5_000_000

var (
	baseRate  = decimal.NewFromFloat(0.25)
	bonusRate = decimal.NewFromFloat(0.05)
)

// Entry is one sale-like record feeding the monthly calculation. EmployeeID
// nil means the record belongs to no one and is skipped entirely.
type Entry struct {
	EmployeeID *int64
	Amount     int64
	Cost       int64
}

// Figures is one employee's monthly result. Commission amounts are exact
// decimals, no intermediate rounding; display-level rounding is the
// caller's concern.
type Figures struct {
	EmployeeID      int64
	TotalSales      int64
	TotalCost       int64
	SalesCount      int32
	BaseCommission  decimal.Decimal
	BonusCommission decimal.Decimal
	TotalCommission decimal.Decimal
	HasBonus        bool
}

// Calculate groups entries per employee and applies the commission rule.
// Results are sorted by total sales descending.
func Calculate(entries []Entry) []*Figures {
	grouped := map[int64]*Figures{}
	for _, e := range entries {
		if e.EmployeeID == nil {
			continue
		}
		f, ok := grouped[*e.EmployeeID]
		if !ok {
			f = &Figures{EmployeeID: *e.EmployeeID}
			grouped[*e.EmployeeID] = f
		}
		f.TotalSales += e.Amount
		f.TotalCost += e.Cost
		f.SalesCount++
	}

	figures := make([]*Figures, 0, len(grouped))
	for _, f := range grouped {
		applyRule(f)
		figures = append(figures, f)
	}
	sort.Slice(figures, func(i, j int) bool {
		if figures[i].TotalSales != figures[j].TotalSales {
			return figures[i].TotalSales > figures[j].TotalSales
		}
		return figures[i].EmployeeID < figures[j].EmployeeID
	})
	return figures
}

// CalculateOne applies the rule to a single pre-summed total, for callers
// that already have the monthly amount in hand.
func CalculateOne(employeeID, totalSales, totalCost int64, salesCount int32) *Figures {
	f := &Figures{
		EmployeeID: employeeID,
		TotalSales: totalSales,
		TotalCost:  totalCost,
		SalesCount: salesCount,
	}
	applyRule(f)
	return f
}

func applyRule(f *Figures) {
	sales := decimal.NewFromInt(f.TotalSales)
	f.BaseCommission = sales.Mul(baseRate)
	f.HasBonus = f.TotalSales > BonusThreshold
	if f.HasBonus {
		f.BonusCommission = sales.Mul(bonusRate)
	} else {
		f.BonusCommission = decimal.Zero
	}
	f.TotalCommission = f.BaseCommission.Add(f.BonusCommission)
}
