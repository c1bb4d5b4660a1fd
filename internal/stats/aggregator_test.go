package stats

import (
	"sync"
	"testing"
	"time"
)

func TestAggregator_Empty(t *testing.T) {
	a := NewAggregator()
	s := a.Snapshot()

	if s.Count != 0 {
		t.Errorf("Count = %d, want 0", s.Count)
	}
	if s.P50Seconds != 0 || s.P99Seconds != 0 || s.MaxSeconds != 0 {
		t.Errorf("empty snapshot should be all zero: %+v", s)
	}
}

func TestAggregator_Counts(t *testing.T) {
	a := NewAggregator()
	a.Record(time.Second, true, false)
	a.Record(2*time.Second, false, false)
	a.Record(30*time.Second, false, true)

	s := a.Snapshot()
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.Successes != 1 {
		t.Errorf("Successes = %d, want 1", s.Successes)
	}
	if s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}
	if s.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", s.Timeouts)
	}
	if s.MaxSeconds != 30 {
		t.Errorf("MaxSeconds = %v, want 30", s.MaxSeconds)
	}
}

func TestAggregator_Quantiles(t *testing.T) {
	a := NewAggregator()
	for i := 1; i <= 100; i++ {
		a.Record(time.Duration(i)*time.Second, true, false)
	}

	s := a.Snapshot()
	// T-Digest is approximate; allow generous tolerance.
	if s.P50Seconds < 40 || s.P50Seconds > 60 {
		t.Errorf("P50 = %v, want ~50", s.P50Seconds)
	}
	if s.P99Seconds < 90 || s.P99Seconds > 101 {
		t.Errorf("P99 = %v, want ~99", s.P99Seconds)
	}
	if s.P50Seconds > s.P95Seconds || s.P95Seconds > s.P99Seconds {
		t.Errorf("quantiles not monotonic: %+v", s)
	}
}

func TestAggregator_Concurrent(t *testing.T) {
	a := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Record(time.Second, true, false)
			}
		}()
	}
	wg.Wait()

	if s := a.Snapshot(); s.Count != 1000 {
		t.Errorf("Count = %d, want 1000", s.Count)
	}
}
