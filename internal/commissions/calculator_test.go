package commissions

import (
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCalculateThresholdBoundary(t *testing.T) {
	// Exactly at the threshold: base rate only, no bonus.
	at := Calculate([]Entry{{EmployeeID: int64Ptr(1), Amount: 5_000_000}})
	if len(at) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(at))
	}
	if at[0].HasBonus {
		t.Error("expected no bonus at exactly 5,000,000")
	}
	if got := at[0].TotalCommission.String(); got != "1250000" {
		t.Errorf("expected total commission 1250000, got %s", got)
	}
	if got := at[0].BonusCommission.String(); got != "0" {
		t.Errorf("expected zero bonus, got %s", got)
	}

	// One KRW above: 25% + 5%, exact decimals, no rounding.
	above := Calculate([]Entry{{EmployeeID: int64Ptr(1), Amount: 5_000_001}})
	if !above[0].HasBonus {
		t.Error("expected bonus above 5,000,000")
	}
	if got := above[0].TotalCommission.String(); got != "1500000.3" {
		t.Errorf("expected total commission 1500000.3, got %s", got)
	}
	if got := above[0].BaseCommission.String(); got != "1250000.25" {
		t.Errorf("expected base commission 1250000.25, got %s", got)
	}
	if got := above[0].BonusCommission.String(); got != "250000.05" {
		t.Errorf("expected bonus commission 250000.05, got %s", got)
	}
}

func TestCalculateGroupsPerEmployee(t *testing.T) {
	figures := Calculate([]Entry{
		{EmployeeID: int64Ptr(1), Amount: 3_000_000, Cost: 1_000_000},
		{EmployeeID: int64Ptr(1), Amount: 2_500_000, Cost: 900_000},
		{EmployeeID: int64Ptr(2), Amount: 1_000_000, Cost: 400_000},
	})
	if len(figures) != 2 {
		t.Fatalf("expected 2 figures, got %d", len(figures))
	}
	// Sorted by total sales descending.
	if figures[0].EmployeeID != 1 || figures[0].TotalSales != 5_500_000 {
		t.Errorf("unexpected first figure: %+v", figures[0])
	}
	if !figures[0].HasBonus {
		t.Error("employee 1 crossed the threshold, expected bonus")
	}
	if figures[0].TotalCost != 1_900_000 || figures[0].SalesCount != 2 {
		t.Errorf("unexpected cost/count: %+v", figures[0])
	}
	if figures[1].EmployeeID != 2 || figures[1].HasBonus {
		t.Errorf("unexpected second figure: %+v", figures[1])
	}
}

func TestCalculateSkipsUnassignedRecords(t *testing.T) {
	figures := Calculate([]Entry{
		{EmployeeID: nil, Amount: 9_000_000},
		{EmployeeID: int64Ptr(7), Amount: 1_000_000},
	})
	if len(figures) != 1 {
		t.Fatalf("expected unassigned record to be excluded, got %d figures", len(figures))
	}
	if figures[0].EmployeeID != 7 || figures[0].TotalSales != 1_000_000 {
		t.Errorf("unexpected figure: %+v", figures[0])
	}
}

func TestCalculateOneMatchesCalculate(t *testing.T) {
	one := CalculateOne(3, 6_000_000, 2_000_000, 4)
	many := Calculate([]Entry{
		{EmployeeID: int64Ptr(3), Amount: 6_000_000, Cost: 2_000_000},
		{EmployeeID: int64Ptr(3), Amount: 0},
		{EmployeeID: int64Ptr(3), Amount: 0},
		{EmployeeID: int64Ptr(3), Amount: 0},
	})
	if !one.TotalCommission.Equal(many[0].TotalCommission) {
		t.Errorf("CalculateOne %s != Calculate %s", one.TotalCommission, many[0].TotalCommission)
	}
	if got := one.TotalCommission.String(); got != "1800000" {
		t.Errorf("expected 1800000 (30%% of 6,000,000), got %s", got)
	}
}
