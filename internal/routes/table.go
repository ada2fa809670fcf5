package routes

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned when no compiled rule matches a request.
var ErrNotFound = fmt.Errorf("routes: no matching route")

// ErrDuplicateToolID is returned when adding a rule whose tool_id already
// exists in the table.
var ErrDuplicateToolID = fmt.Errorf("routes: tool_id already registered")

// snapshot is the immutable, sorted compiled table swapped atomically on
// every mutation. Readers that capture a *snapshot at the start of a
// request see a consistent view for its whole duration, per the
// single-writer/many-reader concurrency model.
type snapshot struct {
	entries []Compiled
}

// Observer is notified synchronously whenever the table is replaced, so
// that dependents (the payment coordinator's own compiled route mirror)
// can stay in sync without twin-writing.
type Observer func(rules []Rule)

// Table is the gateway's copy-on-write route table. add/remove/load
// produce a new immutable snapshot under a single-writer lock; readers
// never observe a half-updated table.
type Table struct {
	current atomic.Pointer[snapshot]

	writeMu   sync.Mutex // serializes writers only; readers never block on it
	seq       int
	observers []Observer
}

// NewTable returns an empty route table.
func NewTable() *Table {
	t := &Table{}
	t.current.Store(&snapshot{})
	return t
}

// Subscribe registers an observer invoked (with the writer lock held, after
// the swap) on every successful mutation.
func (t *Table) Subscribe(obs Observer) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.observers = append(t.observers, obs)
}

// Snapshot returns the rule set backing the table's current compiled
// snapshot, for callers that need to compare before/after a rejected
// mutation (e.g. an SSRF-blocked admin PUT must leave the table unchanged).
func (t *Table) Snapshot() []Rule {
	snap := t.current.Load()
	rules := make([]Rule, len(snap.entries))
	for i, c := range snap.entries {
		rules[i] = c.Rule
	}
	return rules
}

// Match iterates the sorted compiled list and returns the first rule whose
// regex matches the uppercased method and path.
func (t *Table) Match(method, path string) (Rule, map[string]string, error) {
	snap := t.current.Load()
	for _, c := range snap.entries {
		if params, ok := c.matches(method, path); ok {
			return c.Rule, params, nil
		}
	}
	return Rule{}, nil, ErrNotFound
}

// Add inserts a new rule. Fails if tool_id already exists. Copy-on-write:
// builds the new snapshot off the table, then swaps it in under the
// writer lock.
func (t *Table) Add(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	cur := t.current.Load()
	for _, c := range cur.entries {
		if c.Rule.ToolID == rule.ToolID {
			return ErrDuplicateToolID
		}
	}

	entries := make([]Compiled, len(cur.entries), len(cur.entries)+1)
	copy(entries, cur.entries)
	t.seq++
	entries = append(entries, compile(rule, t.seq))
	sortCompiled(entries)

	t.swapLocked(entries)
	return nil
}

// Remove deletes the rule with the given tool_id, if present.
func (t *Table) Remove(toolID string) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	cur := t.current.Load()
	entries := make([]Compiled, 0, len(cur.entries))
	for _, c := range cur.entries {
		if c.Rule.ToolID != toolID {
			entries = append(entries, c)
		}
	}
	t.swapLocked(entries)
}

// Replace atomically swaps the whole table for a new rule set (admin
// replace-by-id / PUT /admin/routes). Validates every rule and rejects
// duplicate tool_ids before swapping; on error the table is unchanged.
func (t *Table) Replace(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	entries := make([]Compiled, 0, len(rules))

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	seq := t.seq
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, dup := seen[rule.ToolID]; dup {
			return ErrDuplicateToolID
		}
		seen[rule.ToolID] = struct{}{}
		seq++
		entries = append(entries, compile(rule, seq))
	}
	sortCompiled(entries)
	t.seq = seq

	t.swapLocked(entries)
	return nil
}

// swapLocked installs the new snapshot and fans out to observers. Caller
// must hold writeMu.
func (t *Table) swapLocked(entries []Compiled) {
	t.current.Store(&snapshot{entries: entries})

	rules := make([]Rule, len(entries))
	for i, c := range entries {
		rules[i] = c.Rule
	}
	for _, obs := range t.observers {
		obs(rules)
	}
}
