// Package spend implements per-mandate daily and lifetime USDC spend
// accounting. Updates are compare-and-add under a per-mandate lock so
// concurrent writers for the same mandate can never exceed the cap
// (naive read-then-add is not sufficient).
package spend

import (
	"sync"
	"time"

	"github.com/x402gateway/gateway/internal/money"
)

type counters struct {
	mu      sync.Mutex
	daily   map[string]int64 // YYYY-MM-DD -> atomic micro-USDC
	lifetime int64
}

// Tracker holds one counters entry per mandate_id.
type Tracker struct {
	mu       sync.Mutex // guards the outer map only; per-mandate ops use counters.mu
	mandates map[string]*counters

	nowFn func() time.Time
}

// New returns an empty spend tracker.
func New() *Tracker {
	return &Tracker{
		mandates: make(map[string]*counters),
		nowFn:    time.Now,
	}
}

func (t *Tracker) entryFor(mandateID string) *counters {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.mandates[mandateID]
	if !ok {
		c = &counters{daily: make(map[string]int64)}
		t.mandates[mandateID] = c
	}
	return c
}

func (t *Tracker) today() string {
	return t.nowFn().UTC().Format("2006-01-02")
}

// GetSpent returns the current UTC day's running total for the mandate, in
// micro-USDC (0 if absent).
func (t *Tracker) GetSpent(mandateID string) money.Money {
	c := t.entryFor(mandateID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return money.New(money.MustGetAsset("USDC"), c.daily[t.today()])
}

// Lifetime returns the mandate's all-time total of amounts recorded by
// CheckAndAdd or Record.
func (t *Tracker) Lifetime(mandateID string) money.Money {
	c := t.entryFor(mandateID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return money.New(money.MustGetAsset("USDC"), c.lifetime)
}

// CheckAndAdd atomically verifies spent+amount <= cap for today and, if so,
// records amount against both the daily and lifetime counters. Returns
// false (no mutation) if the cap would be exceeded. This is the only
// entry point that enforces the cap; it must be used instead of
// GetSpent+Record to avoid the TOCTOU race the spec calls out.
func (t *Tracker) CheckAndAdd(mandateID string, amount, cap money.Money) bool {
	c := t.entryFor(mandateID)
	c.mu.Lock()
	defer c.mu.Unlock()

	day := t.today()
	spent := money.New(amount.Asset, c.daily[day])
	projected, err := spent.Add(amount)
	if err != nil {
		return false
	}
	if projected.GreaterThan(cap) {
		return false
	}

	c.daily[day] = projected.Atomic
	c.lifetime += amount.Atomic
	return true
}

// Record unconditionally adds amount to both counters, bypassing the cap
// check. The pipeline's spend claim goes through CheckAndAdd, not Record;
// never call this directly from the verifier.
func (t *Tracker) Record(mandateID string, amount money.Money) {
	c := t.entryFor(mandateID)
	c.mu.Lock()
	defer c.mu.Unlock()

	day := t.today()
	c.daily[day] += amount.Atomic
	c.lifetime += amount.Atomic
}
