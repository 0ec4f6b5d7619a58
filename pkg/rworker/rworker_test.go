package rworker

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPool(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		jobs  int
		fail  int
	}{
		{name: "serial", limit: 1, jobs: 10, fail: -1},
		{name: "parallel", limit: 4, jobs: 100, fail: -1},
		{name: "zero_limit", limit: 0, jobs: 5, fail: -1},
		{name: "error", limit: 3, jobs: 20, fail: 7},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var (
				done     int64
				inFlight int64
				peak     int64
			)
			limit := int64(test.limit)
			if limit < 1 {
				limit = 1
			}
			p := New(test.limit)
			for i := 0; i < test.jobs; i++ {
				i := i
				p.Go(func() error {
					n := atomic.AddInt64(&inFlight, 1)
					for {
						old := atomic.LoadInt64(&peak)
						if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
							break
						}
					}
					defer atomic.AddInt64(&inFlight, -1)
					atomic.AddInt64(&done, 1)
					if i == test.fail {
						return errors.New("job failed")
					}
					return nil
				})
			}
			err := p.Wait()
			if (err != nil) != (test.fail >= 0) {
				t.Errorf("wait got: %v, expected error: %v", err, test.fail >= 0)
			}
			if done != int64(test.jobs) {
				t.Errorf("jobs done got: %d, expected: %d", done, test.jobs)
			}
			if peak > limit {
				t.Errorf("peak in flight got: %d, expected at most: %d", peak, limit)
			}
		})
	}
}
