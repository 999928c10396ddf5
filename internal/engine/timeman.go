package engine

import (
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
)

// Limits bounds one search. Zero values mean unbounded; clock fields are
// converted to a movetime budget before the search starts.
type Limits struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	WhiteTime time.Duration
	BlackTime time.Duration
	WhiteInc  time.Duration
	BlackInc  time.Duration
	MovesToGo int
	Infinite  bool
}

const (
	defaultMovesToGo = 30
	moveOverhead     = 15 * time.Millisecond
)

// budget is the soft/hard time allocation for one move. The search starts
// a new iteration only while under soft; hard aborts mid-iteration.
type budget struct {
	soft, hard time.Duration
	start      time.Time
	timed      bool
}

// planBudget converts the limits into a concrete allocation for the side
// to move: soft = remaining/movesToGo + increment/2, hard capped at four
// softs and a quarter of the remaining clock.
func planBudget(limits Limits, side board.Color, start time.Time) budget {
	b := budget{start: start}

	if limits.Infinite {
		return b
	}
	if limits.MoveTime > 0 {
		t := limits.MoveTime - moveOverhead
		if t < time.Millisecond {
			t = time.Millisecond
		}
		b.soft, b.hard, b.timed = t, t, true
		return b
	}

	remaining, inc := limits.WhiteTime, limits.WhiteInc
	if side == board.Black {
		remaining, inc = limits.BlackTime, limits.BlackInc
	}
	if remaining <= 0 {
		return b
	}

	mtg := limits.MovesToGo
	if mtg <= 0 {
		mtg = defaultMovesToGo
	}

	soft := remaining/time.Duration(mtg) + inc/2
	hard := 4 * soft
	if quarter := remaining / 4; hard > quarter {
		hard = quarter
	}
	if hard <= moveOverhead {
		hard = time.Millisecond
	} else {
		hard -= moveOverhead
	}
	if soft > hard {
		soft = hard
	}
	b.soft, b.hard, b.timed = soft, hard, true
	return b
}

func (b *budget) elapsed() time.Duration {
	return time.Since(b.start)
}

// deadline returns the hard wall-clock deadline, or the zero time when
// the search is untimed.
func (b *budget) deadline() time.Time {
	if !b.timed {
		return time.Time{}
	}
	return b.start.Add(b.hard)
}

// allowsNewIteration reports whether another iteration should start.
func (b *budget) allowsNewIteration() bool {
	return !b.timed || b.elapsed() < b.soft
}
