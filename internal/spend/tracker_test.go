package spend

import (
	"sync"
	"testing"
	"time"

	"github.com/x402gateway/gateway/internal/money"
)

func usdc(major string) money.Money {
	m, err := money.FromMajor(money.MustGetAsset("USDC"), major)
	if err != nil {
		panic(err)
	}
	return m
}

func TestTracker_CheckAndAdd_WithinCapAdmitted(t *testing.T) {
	tr := New()

	if !tr.CheckAndAdd("mandate-1", usdc("1.00"), usdc("5.00")) {
		t.Fatal("CheckAndAdd() = false, want true (within cap)")
	}
	if got := tr.GetSpent("mandate-1"); !got.Equal(usdc("1.00")) {
		t.Errorf("GetSpent() = %v, want 1.00 USDC", got)
	}
}

func TestTracker_CheckAndAdd_ExceedsCapRejectedAndNotMutated(t *testing.T) {
	tr := New()

	if !tr.CheckAndAdd("mandate-1", usdc("4.00"), usdc("5.00")) {
		t.Fatal("first CheckAndAdd() = false, want true")
	}
	if tr.CheckAndAdd("mandate-1", usdc("2.00"), usdc("5.00")) {
		t.Fatal("second CheckAndAdd() = true, want false (would exceed cap)")
	}

	// Rejected attempt must not have mutated the counters.
	if got := tr.GetSpent("mandate-1"); !got.Equal(usdc("4.00")) {
		t.Errorf("GetSpent() after rejected add = %v, want 4.00 USDC (unchanged)", got)
	}
}

func TestTracker_CheckAndAdd_ExactlyAtCapAdmitted(t *testing.T) {
	tr := New()

	if !tr.CheckAndAdd("mandate-1", usdc("5.00"), usdc("5.00")) {
		t.Fatal("CheckAndAdd() = false, want true (spend == cap is allowed)")
	}
}

func TestTracker_Lifetime_AccumulatesAcrossDays(t *testing.T) {
	tr := New()
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.nowFn = func() time.Time { return day1 }

	if !tr.CheckAndAdd("mandate-1", usdc("3.00"), usdc("100.00")) {
		t.Fatal("day1 CheckAndAdd() = false")
	}

	day2 := day1.Add(24 * time.Hour)
	tr.nowFn = func() time.Time { return day2 }

	if !tr.CheckAndAdd("mandate-1", usdc("2.00"), usdc("100.00")) {
		t.Fatal("day2 CheckAndAdd() = false")
	}

	if got := tr.Lifetime("mandate-1"); !got.Equal(usdc("5.00")) {
		t.Errorf("Lifetime() = %v, want 5.00 USDC", got)
	}
	if got := tr.GetSpent("mandate-1"); !got.Equal(usdc("2.00")) {
		t.Errorf("GetSpent() on day2 = %v, want 2.00 USDC (daily counter resets per UTC day)", got)
	}
}

func TestTracker_DailyCapDoesNotCarryAcrossDays(t *testing.T) {
	tr := New()
	day1 := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	tr.nowFn = func() time.Time { return day1 }

	if !tr.CheckAndAdd("mandate-1", usdc("5.00"), usdc("5.00")) {
		t.Fatal("day1 CheckAndAdd() = false")
	}
	if tr.CheckAndAdd("mandate-1", usdc("0.01"), usdc("5.00")) {
		t.Fatal("day1 second CheckAndAdd() = true, want false (cap reached)")
	}

	day2 := day1.Add(2 * time.Hour) // crosses UTC midnight
	tr.nowFn = func() time.Time { return day2 }

	if !tr.CheckAndAdd("mandate-1", usdc("5.00"), usdc("5.00")) {
		t.Fatal("day2 CheckAndAdd() = false, want true (daily cap resets on new UTC day)")
	}
}

func TestTracker_GetSpent_UnknownMandateIsZero(t *testing.T) {
	tr := New()
	if got := tr.GetSpent("never-seen"); !got.IsZero() {
		t.Errorf("GetSpent() for unknown mandate = %v, want zero", got)
	}
	if got := tr.Lifetime("never-seen"); !got.IsZero() {
		t.Errorf("Lifetime() for unknown mandate = %v, want zero", got)
	}
}

func TestTracker_MandatesAreIndependent(t *testing.T) {
	tr := New()
	tr.CheckAndAdd("mandate-a", usdc("5.00"), usdc("5.00"))

	if !tr.CheckAndAdd("mandate-b", usdc("5.00"), usdc("5.00")) {
		t.Error("mandate-b CheckAndAdd() = false, want true (independent cap from mandate-a)")
	}
}

func TestTracker_Record_UnconditionalAdd(t *testing.T) {
	tr := New()
	tr.Record("mandate-1", usdc("2.50"))
	tr.Record("mandate-1", usdc("2.50"))

	if got := tr.GetSpent("mandate-1"); !got.Equal(usdc("5.00")) {
		t.Errorf("GetSpent() after Record() = %v, want 5.00 USDC", got)
	}
}

func TestTracker_CheckAndAdd_ConcurrentWritersRespectCap(t *testing.T) {
	tr := New()
	cap := usdc("10.00")
	const writers = 50

	var wg sync.WaitGroup
	admitted := make([]bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			admitted[i] = tr.CheckAndAdd("mandate-1", usdc("1.00"), cap)
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 10 {
		t.Errorf("admitted count = %d, want exactly 10 (cap/amount)", count)
	}
	if got := tr.GetSpent("mandate-1"); !got.Equal(cap) {
		t.Errorf("GetSpent() = %v, want cap %v exactly", got, cap)
	}
}
