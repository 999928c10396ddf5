package engine

import (
	"testing"
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
)

func TestPlanBudgetMoveTime(t *testing.T) {
	b := planBudget(Limits{MoveTime: 500 * time.Millisecond}, board.White, time.Now())
	if !b.timed {
		t.Fatal("fixed movetime did not produce a timed budget")
	}
	if b.soft != b.hard {
		t.Errorf("movetime budget: soft %v != hard %v", b.soft, b.hard)
	}
	if b.hard >= 500*time.Millisecond || b.hard < 400*time.Millisecond {
		t.Errorf("hard = %v, want just under 500ms", b.hard)
	}
}

func TestPlanBudgetClock(t *testing.T) {
	limits := Limits{
		WhiteTime: 60 * time.Second,
		BlackTime: 60 * time.Second,
		WhiteInc:  2 * time.Second,
		BlackInc:  2 * time.Second,
	}
	b := planBudget(limits, board.White, time.Now())

	// soft = 60s/30 + 2s/2 = 3s.
	if b.soft < 2500*time.Millisecond || b.soft > 3500*time.Millisecond {
		t.Errorf("soft = %v, want about 3s", b.soft)
	}
	// hard = min(4*soft, T/4) = min(12s, 15s) = 12s, minus overhead.
	if b.hard < 11*time.Second || b.hard > 12*time.Second {
		t.Errorf("hard = %v, want about 12s", b.hard)
	}
}

func TestPlanBudgetHardCappedByClockQuarter(t *testing.T) {
	limits := Limits{BlackTime: 4 * time.Second, MovesToGo: 2}
	b := planBudget(limits, board.Black, time.Now())

	// soft = 2s, 4*soft = 8s but T/4 = 1s caps it.
	if b.hard > time.Second {
		t.Errorf("hard = %v, want at most a quarter of the clock", b.hard)
	}
	if b.soft > b.hard {
		t.Errorf("soft %v exceeds hard %v", b.soft, b.hard)
	}
}

func TestPlanBudgetInfinite(t *testing.T) {
	b := planBudget(Limits{Infinite: true}, board.White, time.Now())
	if b.timed {
		t.Errorf("infinite search got a deadline")
	}
	if !b.deadline().IsZero() {
		t.Errorf("infinite search deadline = %v, want zero", b.deadline())
	}
	if !b.allowsNewIteration() {
		t.Errorf("infinite search must always allow another iteration")
	}
}

func TestPlanBudgetUsesOwnClock(t *testing.T) {
	limits := Limits{
		WhiteTime: time.Minute,
		BlackTime: 2 * time.Second,
	}
	w := planBudget(limits, board.White, time.Now())
	b := planBudget(limits, board.Black, time.Now())
	if w.soft <= b.soft {
		t.Errorf("white (60s clock) got %v, black (2s clock) got %v", w.soft, b.soft)
	}
}
