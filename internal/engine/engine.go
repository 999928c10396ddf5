package engine

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
	"github.com/nobriot/schnecken-bot/internal/nnue"
)

// Config configures a new engine instance.
type Config struct {
	HashMiB         int    // transposition table size, default 64
	Threads         int    // reserved; the search runs one worker per Think
	NNUEWeightsPath string // optional neural evaluator weights
	Contempt        int    // draw score bias in centipawns
}

// Info is a progress report emitted after each completed iteration.
type Info struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	Hashfull int
}

// SearchResult is what Think returns to the collaborator.
type SearchResult struct {
	Best   board.Move
	Ponder board.Move
	PV     []board.Move
	Score  int
	Depth  int
	Nodes  uint64
}

// Engine is the driver: it owns the transposition table and ordering
// state across Think calls within a game, runs the iterative-deepening
// loop and exposes the stop latch. Think must not be called concurrently
// on the same Engine.
type Engine struct {
	tt       *TransTable
	pawns    *PawnCache
	order    ordering
	nn       *nnue.Evaluator
	contempt int

	history []uint64 // hashes of the game positions before the root

	stop     atomic.Bool
	thinking atomic.Bool

	// OnInfo, when set, receives a report after every completed depth.
	OnInfo func(Info)
}

// New creates an engine. A missing or corrupt weights file is not fatal:
// the engine logs a warning and falls back to the hand-crafted evaluation.
func New(cfg Config) *Engine {
	if cfg.HashMiB <= 0 {
		cfg.HashMiB = 64
	}
	e := &Engine{
		tt:       NewTransTable(cfg.HashMiB),
		pawns:    NewPawnCache(2),
		contempt: cfg.Contempt,
	}
	if cfg.NNUEWeightsPath != "" {
		nn, err := nnue.LoadEvaluator(cfg.NNUEWeightsPath)
		if err != nil {
			log.Printf("engine: neural evaluator unavailable (%v), using hand-crafted evaluation", err)
		} else {
			e.nn = nn
		}
	}
	return e
}

// UsesNeuralEval reports whether the neural head is active.
func (e *Engine) UsesNeuralEval() bool { return e.nn != nil }

// NewGame clears the transposition table, the pawn cache, killers and
// history; call between games.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.pawns.Clear()
	e.order.reset()
	e.history = nil
}

// SetHistory records the hashes of the positions played before the next
// root, for three-fold detection across the game.
func (e *Engine) SetHistory(hashes []uint64) {
	e.history = append(e.history[:0], hashes...)
}

// Stop requests the current Think to finish. The latch stays set until
// the next Think clears it.
func (e *Engine) Stop() { e.stop.Store(true) }

// Ready reports whether the engine can accept a Think call.
func (e *Engine) Ready() bool { return !e.thinking.Load() }

// Think searches the position within the limits and returns the best
// move found. It runs synchronously in the calling goroutine; cancel it
// from elsewhere with Stop. Cancellation is not an error: the best move
// of the last completed iteration is returned.
func (e *Engine) Think(pos *board.Position, limits Limits) SearchResult {
	e.thinking.Store(true)
	defer e.thinking.Store(false)
	e.stop.Store(false)
	e.tt.NextAge()
	e.order.clear()

	start := time.Now()
	b := planBudget(limits, pos.SideToMove, start)

	s := &searcher{
		pos:      pos.Clone(),
		tt:       e.tt,
		pawns:    e.pawns,
		nn:       e.nn,
		order:    &e.order,
		contempt: e.contempt,
		maxNodes: limits.Nodes,
		deadline: b.deadline(),
		stop:     &e.stop,
	}
	if s.nn != nil {
		s.nn.Reset(s.pos)
	}
	s.hashes = make([]uint64, 0, len(e.history)+MaxPly+1)
	s.hashes = append(s.hashes, e.history...)
	s.hashes = append(s.hashes, s.pos.Hash)
	s.gameLen = len(s.hashes)

	// The root itself may already be drawn by rule (threefold or the
	// 50-move clock); the reported score must say so whatever the
	// search prefers.
	rootDrawn := s.isDraw()

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	var result SearchResult

	const aspirationWindow = 40
	for depth := 1; depth <= maxDepth; depth++ {
		alpha, beta := -Infinity, Infinity
		if depth >= 5 {
			alpha = result.Score - aspirationWindow
			beta = result.Score + aspirationWindow
		}

		var score int
		for {
			score = s.negamax(depth, 0, alpha, beta)
			if s.aborted {
				break
			}
			// Widen the window on a fail and search again.
			if score <= alpha {
				alpha = -Infinity
			} else if score >= beta {
				beta = Infinity
			} else {
				break
			}
		}
		if s.aborted {
			break
		}

		result.Depth = depth
		result.Score = score
		result.Nodes = s.nodes
		result.PV = s.pv.line()
		if len(result.PV) > 0 {
			result.Best = result.PV[0]
		}
		if len(result.PV) > 1 {
			result.Ponder = result.PV[1]
		} else {
			result.Ponder = board.NullMove
		}

		if e.OnInfo != nil {
			e.OnInfo(Info{
				Depth:    depth,
				Score:    score,
				Nodes:    s.nodes,
				Time:     time.Since(start),
				PV:       result.PV,
				Hashfull: e.tt.Hashfull(),
			})
		}

		if IsMateScore(score) && depth >= abs(MateValue-abs(score)) {
			break // the mate is proven to its full distance
		}
		if !b.allowsNewIteration() {
			break
		}
	}

	result.Nodes = s.nodes
	if rootDrawn {
		result.Score = s.drawScore(0)
	}
	if result.Best == board.NullMove {
		// Cancelled before depth 1 completed: any legal move.
		if legal := pos.LegalMoves(); legal.Len() > 0 {
			result.Best = legal.Move(0)
		}
	}
	return result
}

// Perft counts the legal move tree to the given depth; a movegen
// debugging aid exposed to the UCI layer.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Move(i)
		undo := pos.MakeMove(m)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
