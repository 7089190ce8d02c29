package arena

import "testing"

func TestAllocReturnsUsableBuffer(t *testing.T) {
	a := New()
	buf, err := a.Alloc(24, true)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != 24 {
		t.Fatalf("len(buf) = %d, want 24", len(buf))
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d, want zeroed", i, b)
		}
	}
	buf[0] = 0xFF
	a.Free(buf, 24)
}

func TestAllocReusesFreedSlot(t *testing.T) {
	a := New()
	// keep holds a second slot on the same page, so freeing buf1 does not
	// empty the page and unmap it.
	keep, err := a.Alloc(32, false)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf1, err := a.Alloc(32, false)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a.Free(buf1, 32)

	buf2, err := a.Alloc(32, false)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(a.heads) == 0 {
		t.Fatal("expected at least one size class")
	}
	if &buf2[0] != &buf1[0] {
		t.Fatal("second Alloc did not reuse the freed slot")
	}
	a.Free(buf2, 32)
	a.Free(keep, 32)
}

func TestAllocAboveMaxSizeClassMapsPages(t *testing.T) {
	a := New()
	buf, err := a.Alloc(MaxSizeClass+1, true)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != MaxSizeClass+1 {
		t.Fatalf("len(buf) = %d, want %d", len(buf), MaxSizeClass+1)
	}
	a.Free(buf, MaxSizeClass+1)
}

func TestCollectTriggeredOnAllocationPressure(t *testing.T) {
	a := New()
	var collected bool
	a.Collect = func() { collected = true }
	a.allocCount = CollectTrigger - 1

	if _, err := a.Alloc(16, false); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if !collected {
		t.Fatal("expected Collect to run after CollectTrigger allocations")
	}
	if a.allocCount != 0 {
		t.Fatalf("allocCount = %d, want reset to 0", a.allocCount)
	}
}

func TestClassIndexPicksSmallestFittingPowerOfTwo(t *testing.T) {
	cases := []struct {
		size     int
		wantSize int
	}{
		{1, MinSizeClass},
		{MinSizeClass, MinSizeClass},
		{MinSizeClass + 1, MinSizeClass * 2},
		{MaxSizeClass, MaxSizeClass},
	}
	for _, c := range cases {
		_, sz := classIndex(c.size)
		if sz != c.wantSize {
			t.Errorf("classIndex(%d) size = %d, want %d", c.size, sz, c.wantSize)
		}
	}
}
