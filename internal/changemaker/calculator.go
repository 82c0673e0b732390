package changemaker

import (
	"math"
	"sort"
)

// ReasonInsufficient is the drawer-fallback reason when no exact
// combination exists under the per-hopper caps.
const ReasonInsufficient = "Insufficient coins in hoppers"

// ReasonAmountTooLarge is returned for change requests above the
// configured bound.
const ReasonAmountTooLarge = "Change amount exceeds hopper payout limit"

const defaultMaxAmountCents = 100_000 // 1000.00

// Hopper is a read-only inventory snapshot for one coin/note channel.
// The calculator never mutates it; decrementing inventory after a physical
// dispense is the caller's responsibility.
type Hopper struct {
	Denomination float64 `json:"denomination"`
	Available    int     `json:"available"`
	LowThreshold int     `json:"lowThreshold"`
}

// PlanLine is one denomination/quantity pair of a dispensing plan.
type PlanLine struct {
	Denomination float64 `json:"denomination"`
	Quantity     int     `json:"quantity"`
}

// Plan is the result of a change computation. Infeasibility is a normal
// return value, never an error.
type Plan struct {
	Lines      []PlanLine `json:"denominations"`
	TotalCoins int        `json:"totalCoins"`
	Feasible   bool       `json:"feasible"`
	UseDrawer  bool       `json:"useDrawer"`
	Reason     string     `json:"reason,omitempty"`
}

// Calculator computes inventory-constrained minimal-coin change plans.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	maxAmountCents int64
	critical       map[int64]struct{}
}

// Option configures the calculator.
type Option func(*Calculator)

// WithMaxAmount bounds the largest change amount served from hoppers.
func WithMaxAmount(amount float64) Option {
	return func(c *Calculator) {
		if cents := toCents(amount); cents > 0 {
			c.maxAmountCents = cents
		}
	}
}

// WithCriticalDenominations declares the small denominations whose low
// thresholds are protected for future change-making.
func WithCriticalDenominations(denominations ...float64) Option {
	return func(c *Calculator) {
		for _, d := range denominations {
			if cents := toCents(d); cents > 0 {
				c.critical[cents] = struct{}{}
			}
		}
	}
}

// NewCalculator constructs a change calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		maxAmountCents: defaultMaxAmountCents,
		critical:       make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type channel struct {
	cents        int64
	available    int
	lowThreshold int
}

// CalculateOptimalChange returns a dispensing plan for the given amount
// against the hopper snapshot. All arithmetic happens in integer cents.
func (c *Calculator) CalculateOptimalChange(amount float64, hoppers []Hopper) Plan {
	amountCents := toCents(amount)
	if amountCents == 0 {
		return Plan{Lines: []PlanLine{}, Feasible: true}
	}
	if amountCents < 0 {
		return drawerPlan(ReasonInsufficient)
	}
	if amountCents > c.maxAmountCents {
		return drawerPlan(ReasonAmountTooLarge)
	}

	channels := normalize(hoppers)
	if len(channels) == 0 {
		return drawerPlan(ReasonInsufficient)
	}

	if counts, ok := c.greedy(amountCents, channels); ok && c.respectsReserve(channels, counts) {
		return buildPlan(channels, counts)
	}

	counts, ok := c.exactMinimum(amountCents, channels)
	if !ok {
		return drawerPlan(ReasonInsufficient)
	}
	return buildPlan(channels, counts)
}

// greedy fills high to low, taking min(remaining/denom, available) at each
// step. Fast path for the common case.
func (c *Calculator) greedy(amountCents int64, channels []channel) ([]int, bool) {
	counts := make([]int, len(channels))
	remaining := amountCents
	for i, ch := range channels {
		if remaining <= 0 {
			break
		}
		take := remaining / ch.cents
		if take > int64(ch.available) {
			take = int64(ch.available)
		}
		counts[i] = int(take)
		remaining -= take * ch.cents
	}
	return counts, remaining == 0
}

// respectsReserve rejects plans that would drop a critical denomination
// below its low threshold: correctness here is system-level feasibility,
// not just this transaction's.
func (c *Calculator) respectsReserve(channels []channel, counts []int) bool {
	for i, ch := range channels {
		if counts[i] == 0 {
			continue
		}
		if _, protected := c.critical[ch.cents]; !protected {
			continue
		}
		if ch.available-counts[i] < ch.lowThreshold {
			return false
		}
	}
	return true
}

// exactMinimum runs a bounded coin-change DP: minimize total coin count to
// reach amountCents exactly, each denomination usable at most cap times.
// Critical denominations have their reserve subtracted from the cap, so a
// solution never strips the float of small coins.
func (c *Calculator) exactMinimum(amountCents int64, channels []channel) ([]int, bool) {
	amount := int(amountCents)
	const inf = math.MaxInt32

	best := make([]int, amount+1)
	for i := 1; i <= amount; i++ {
		best[i] = inf
	}
	chosen := make([][]int32, len(channels))

	for i, ch := range channels {
		capacity := ch.available
		if _, protected := c.critical[ch.cents]; protected {
			capacity -= ch.lowThreshold
			if capacity < 0 {
				capacity = 0
			}
		}
		denom := int(ch.cents)

		next := make([]int, amount+1)
		picks := make([]int32, amount+1)
		for a := 0; a <= amount; a++ {
			next[a] = best[a]
			for k := 1; k <= capacity && k*denom <= a; k++ {
				if best[a-k*denom] == inf {
					continue
				}
				if cand := best[a-k*denom] + k; cand < next[a] {
					next[a] = cand
					picks[a] = int32(k)
				}
			}
		}
		best = next
		chosen[i] = picks
	}

	if best[amount] == inf {
		return nil, false
	}

	counts := make([]int, len(channels))
	remaining := amount
	for i := len(channels) - 1; i >= 0; i-- {
		k := int(chosen[i][remaining])
		counts[i] = k
		remaining -= k * int(channels[i].cents)
	}
	return counts, true
}

// normalize merges duplicate denominations, drops non-positive ones, and
// sorts descending. The ordering is significant for the greedy pass and
// for plan presentation.
func normalize(hoppers []Hopper) []channel {
	merged := make(map[int64]*channel, len(hoppers))
	for _, h := range hoppers {
		cents := toCents(h.Denomination)
		if cents <= 0 || h.Available < 0 {
			continue
		}
		if existing, ok := merged[cents]; ok {
			existing.available += h.Available
			if h.LowThreshold > existing.lowThreshold {
				existing.lowThreshold = h.LowThreshold
			}
			continue
		}
		merged[cents] = &channel{cents: cents, available: h.Available, lowThreshold: h.LowThreshold}
	}

	channels := make([]channel, 0, len(merged))
	for _, ch := range merged {
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].cents > channels[j].cents
	})
	return channels
}

func buildPlan(channels []channel, counts []int) Plan {
	lines := make([]PlanLine, 0, len(channels))
	total := 0
	for i, ch := range channels {
		if counts[i] == 0 {
			continue
		}
		lines = append(lines, PlanLine{Denomination: fromCents(ch.cents), Quantity: counts[i]})
		total += counts[i]
	}
	return Plan{Lines: lines, TotalCoins: total, Feasible: true}
}

func drawerPlan(reason string) Plan {
	return Plan{Lines: []PlanLine{}, Feasible: false, UseDrawer: true, Reason: reason}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
