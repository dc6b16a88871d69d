package async

import (
	"errors"
	"testing"
)

func TestRaceWinnerCancelsLoser(t *testing.T) {
	rt := New()
	slow := Queue(rt, nil, func(c *Ctx) (string, error) {
		if err := c.Delay(0.05); err != nil {
			return "", err
		}
		return "slow", nil
	})
	fast := Queue(rt, nil, func(c *Ctx) (string, error) {
		return "fast", nil
	})

	got, err := Race[string](nil, []*Task[string]{slow, fast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fast" {
		t.Fatalf("winner = %q; want %q", got, "fast")
	}

	_, err = slow.Await(nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("loser await err = %v; want ErrCancelled", err)
	}
}

func TestRaceEmptyFails(t *testing.T) {
	_, err := Race[int](nil, nil)
	if !errors.Is(err, ErrRaceEmpty) {
		t.Fatalf("err = %v; want ErrRaceEmpty", err)
	}
}

func TestAllCollectsResultsAndFirstError(t *testing.T) {
	rt := New()
	boom := errors.New("boom")

	tasks := map[string]*Task[int]{
		"a": Queue(rt, nil, func(c *Ctx) (int, error) { return 1, nil }),
		"b": Queue(rt, nil, func(c *Ctx) (int, error) { return 0, boom }),
		"c": Queue(rt, nil, func(c *Ctx) (int, error) { return 3, nil }),
	}

	_, err := All(nil, tasks)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want %v", err, boom)
	}

	// Even on error, every task drained to completion.
	for k, tk := range tasks {
		if !tk.isDone() {
			t.Fatalf("task %q not done after All", k)
		}
	}
}

func TestGatherAndForEach(t *testing.T) {
	rt := New()
	root := Queue(rt, nil, func(c *Ctx) (int, error) {
		results, err := Gather(c, []int{1, 2, 3}, func(cc *Ctx, n int) (int, error) {
			return n * n, nil
		})
		if err != nil {
			return 0, err
		}
		return results[0] + results[1] + results[2], nil
	})

	got, err := root.Await(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 14 {
		t.Fatalf("sum of squares = %d; want 14", got)
	}

	var seen []int
	root2 := Queue(rt, nil, func(c *Ctx) (struct{}, error) {
		err := ForEach(c, []int{10, 20, 30}, func(cc *Ctx, n int) error {
			seen = append(seen, n)
			return nil
		})
		return struct{}{}, err
	})
	if _, err := root2.Await(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("seen = %v; want 3 entries", seen)
	}
}

func TestTimeoutWinsOverSlowTask(t *testing.T) {
	rt := New()
	root := Queue(rt, nil, func(c *Ctx) (string, error) {
		return Timeout(c, func(cc *Ctx) (string, error) {
			if err := cc.Delay(3600); err != nil {
				return "", err
			}
			return "too slow", nil
		}, 0.01)
	})

	_, err := root.Await(nil)
	if !IsTimeout(err) {
		t.Fatalf("err = %v; want a timeout error", err)
	}
}

func TestScopeSwapsCurrentRuntime(t *testing.T) {
	rt := New()
	var observed *Runtime
	Scope(rt, func() {
		observed = Current()
	})
	if observed != rt {
		t.Fatalf("Current() inside Scope = %p; want %p", observed, rt)
	}
	if Current() != nil {
		t.Fatalf("Current() after Scope = %v; want nil", Current())
	}
}
