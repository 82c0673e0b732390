package changemaker

import (
	"math"
	"testing"
)

func planQuantity(plan Plan, denomination float64) int {
	for _, line := range plan.Lines {
		if math.Abs(line.Denomination-denomination) < 1e-9 {
			return line.Quantity
		}
	}
	return 0
}

func TestCalculateGreedyFastPath(t *testing.T) {
	calc := NewCalculator()
	hoppers := []Hopper{
		{Denomination: 0.10, Available: 5, LowThreshold: 2},
		{Denomination: 0.20, Available: 3, LowThreshold: 1},
		{Denomination: 1.00, Available: 10, LowThreshold: 2},
	}

	plan := calc.CalculateOptimalChange(1.30, hoppers)
	if !plan.Feasible || plan.UseDrawer {
		t.Fatalf("expected feasible plan, got %+v", plan)
	}
	if plan.TotalCoins != 3 {
		t.Fatalf("expected 3 coins, got %d", plan.TotalCoins)
	}
	if planQuantity(plan, 1.00) != 1 || planQuantity(plan, 0.20) != 1 || planQuantity(plan, 0.10) != 1 {
		t.Fatalf("unexpected plan lines: %+v", plan.Lines)
	}
	if len(plan.Lines) > 1 && plan.Lines[0].Denomination < plan.Lines[1].Denomination {
		t.Fatalf("expected descending lines, got %+v", plan.Lines)
	}
}

func TestCalculateZeroAmount(t *testing.T) {
	calc := NewCalculator()

	plan := calc.CalculateOptimalChange(0, nil)
	if !plan.Feasible || plan.UseDrawer {
		t.Fatalf("expected feasible empty plan, got %+v", plan)
	}
	if len(plan.Lines) != 0 || plan.TotalCoins != 0 {
		t.Fatalf("expected no lines, got %+v", plan)
	}
}

func TestCalculateNegativeAmount(t *testing.T) {
	calc := NewCalculator()

	plan := calc.CalculateOptimalChange(-0.50, []Hopper{{Denomination: 0.10, Available: 10}})
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
}

func TestCalculateAmountAboveBound(t *testing.T) {
	calc := NewCalculator(WithMaxAmount(50))

	plan := calc.CalculateOptimalChange(60, []Hopper{{Denomination: 1.00, Available: 100}})
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
	if plan.Reason != ReasonAmountTooLarge {
		t.Fatalf("unexpected reason: %q", plan.Reason)
	}
}

func TestCalculateCriticalReserveForcesDrawer(t *testing.T) {
	calc := NewCalculator(WithCriticalDenominations(0.20))
	hoppers := []Hopper{{Denomination: 0.20, Available: 10, LowThreshold: 8}}

	// Enough coins in raw count, but spending them would strip the float
	// below its reserve. Only 2 coins are actually spendable.
	plan := calc.CalculateOptimalChange(2.00, hoppers)
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
	if plan.Reason != ReasonInsufficient {
		t.Fatalf("unexpected reason: %q", plan.Reason)
	}
}

func TestCalculateCriticalReserveReroutes(t *testing.T) {
	calc := NewCalculator(WithCriticalDenominations(0.10))
	hoppers := []Hopper{
		{Denomination: 0.10, Available: 10, LowThreshold: 8},
		{Denomination: 0.05, Available: 10, LowThreshold: 0},
	}

	// Greedy would take three 0.10 coins and break the reserve; the exact
	// solver caps the critical channel at 2 and fills in with 0.05 coins.
	plan := calc.CalculateOptimalChange(0.30, hoppers)
	if !plan.Feasible {
		t.Fatalf("expected feasible plan, got %+v", plan)
	}
	if planQuantity(plan, 0.10) != 2 || planQuantity(plan, 0.05) != 2 {
		t.Fatalf("unexpected plan lines: %+v", plan.Lines)
	}
	if plan.TotalCoins != 4 {
		t.Fatalf("expected 4 coins, got %d", plan.TotalCoins)
	}
}

func TestCalculateGreedyDeadEndFallsBackToExact(t *testing.T) {
	calc := NewCalculator()
	hoppers := []Hopper{
		{Denomination: 0.50, Available: 1},
		{Denomination: 0.20, Available: 3},
	}

	// Greedy takes 0.50 and strands the remaining 0.10; the exact solver
	// finds three 0.20 coins instead.
	plan := calc.CalculateOptimalChange(0.60, hoppers)
	if !plan.Feasible {
		t.Fatalf("expected feasible plan, got %+v", plan)
	}
	if planQuantity(plan, 0.20) != 3 || planQuantity(plan, 0.50) != 0 {
		t.Fatalf("unexpected plan lines: %+v", plan.Lines)
	}
}

func TestCalculateInsufficientInventory(t *testing.T) {
	calc := NewCalculator()

	plan := calc.CalculateOptimalChange(5.00, []Hopper{{Denomination: 1.00, Available: 3}})
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
	if plan.Reason != ReasonInsufficient {
		t.Fatalf("unexpected reason: %q", plan.Reason)
	}
}

func TestCalculateUnreachableRemainder(t *testing.T) {
	calc := NewCalculator()

	plan := calc.CalculateOptimalChange(0.05, []Hopper{{Denomination: 0.10, Available: 50}})
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
}

func TestCalculateMergesDuplicateDenominations(t *testing.T) {
	calc := NewCalculator()
	hoppers := []Hopper{
		{Denomination: 0.10, Available: 3, LowThreshold: 1},
		{Denomination: 0.10, Available: 3, LowThreshold: 2},
	}

	plan := calc.CalculateOptimalChange(0.60, hoppers)
	if !plan.Feasible {
		t.Fatalf("expected feasible plan, got %+v", plan)
	}
	if len(plan.Lines) != 1 || plan.Lines[0].Quantity != 6 {
		t.Fatalf("expected merged single line of 6, got %+v", plan.Lines)
	}
}

func TestCalculateIgnoresEmptyAndInvalidHoppers(t *testing.T) {
	calc := NewCalculator()
	hoppers := []Hopper{
		{Denomination: 0, Available: 100},
		{Denomination: -0.10, Available: 100},
		{Denomination: 0.50, Available: -1},
		{Denomination: 0.50, Available: 2},
	}

	plan := calc.CalculateOptimalChange(1.00, hoppers)
	if !plan.Feasible {
		t.Fatalf("expected feasible plan, got %+v", plan)
	}
	if planQuantity(plan, 0.50) != 2 {
		t.Fatalf("unexpected plan lines: %+v", plan.Lines)
	}
}

func TestCalculateNoHoppers(t *testing.T) {
	calc := NewCalculator()

	plan := calc.CalculateOptimalChange(1.00, nil)
	if plan.Feasible || !plan.UseDrawer {
		t.Fatalf("expected drawer fallback, got %+v", plan)
	}
}
