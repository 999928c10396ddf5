package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
	"github.com/nobriot/schnecken-bot/internal/nnue"
)

// The search polls the stop flag and the deadline once per this many
// nodes; it is the only suspension point in the hot loop.
const pollInterval = 2048

// lmrTable holds the late-move depth reductions, log(depth)*log(move).
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(0.5 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

// pvTable is the triangular principal-variation table.
type pvTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *pvTable) line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// searcher runs one fail-soft alpha-beta search. It owns no shared state
// beyond the pointers the driver hands it; a fresh search reuses the
// transposition table, killers and history across iterations.
type searcher struct {
	pos      *board.Position
	tt       *TransTable
	pawns    *PawnCache
	nn       *nnue.Evaluator
	order    *ordering
	pv       pvTable
	contempt int

	// hashes holds the pre-search game positions followed by the current
	// search path; gameLen marks the boundary for the repetition rule.
	hashes  []uint64
	gameLen int

	nodes    uint64
	maxNodes uint64
	deadline time.Time
	stop     *atomic.Bool
	aborted  bool
}

// checkAbort latches the abort state from the stop flag, the node budget
// and the hard deadline.
func (s *searcher) checkAbort() bool {
	if s.aborted {
		return true
	}
	if s.stop.Load() ||
		(s.maxNodes > 0 && s.nodes >= s.maxNodes) ||
		(!s.deadline.IsZero() && time.Now().After(s.deadline)) {
		s.aborted = true
	}
	return s.aborted
}

// drawScore is the contempt-adjusted score of a draw at the given ply:
// even plies are the engine's own turns.
func (s *searcher) drawScore(ply int) int {
	if ply%2 == 0 {
		return -s.contempt
	}
	return s.contempt
}

// isDraw covers the 50-move rule, bare material and repetition: a
// position repeated once within the search path, or twice more in the
// game history, scores as a draw.
func (s *searcher) isDraw() bool {
	if s.pos.Rule50 >= 100 {
		return true
	}
	if s.pos.IsDrawnByMaterial() {
		return true
	}
	cur := s.hashes[len(s.hashes)-1]
	limit := len(s.hashes) - 1 - s.pos.Rule50
	if limit < 0 {
		limit = 0
	}
	seen := 0
	for i := len(s.hashes) - 3; i >= limit; i -= 2 {
		if s.hashes[i] != cur {
			continue
		}
		if i >= s.gameLen {
			return true
		}
		seen++
		if seen >= 2 {
			return true
		}
	}
	return false
}

// evaluate dispatches to the neural head when one is loaded; the variant
// is fixed at engine construction, not per node.
func (s *searcher) evaluate() int {
	if s.nn != nil {
		return s.nn.Evaluate(s.pos)
	}
	return Evaluate(s.pos, s.pawns)
}

func (s *searcher) makeMove(m board.Move) board.Undo {
	if s.nn != nil {
		s.nn.Push()
	}
	undo := s.pos.MakeMove(m)
	if s.nn != nil {
		s.nn.Update(s.pos, m, undo.Captured)
	}
	s.hashes = append(s.hashes, s.pos.Hash)
	return undo
}

func (s *searcher) unmakeMove(m board.Move, undo board.Undo) {
	s.hashes = s.hashes[:len(s.hashes)-1]
	s.pos.UnmakeMove(m, undo)
	if s.nn != nil {
		s.nn.Pop()
	}
}

// negamax is the fail-soft alpha-beta core.
func (s *searcher) negamax(depth, ply, alpha, beta int) int {
	s.pv.length[ply] = ply
	if ply >= MaxPly-1 {
		return s.evaluate()
	}
	if s.nodes%pollInterval == 0 && s.checkAbort() {
		return 0
	}
	s.nodes++

	isPV := beta-alpha > 1

	if ply > 0 && s.isDraw() {
		return s.drawScore(ply)
	}

	ttMove, ttScore, ttDepth, ttBound, ttHit := s.tt.Probe(s.pos.Hash, ply)
	if ttHit && ttMove != board.NullMove {
		// A key collision can smuggle in a move from another position;
		// drop it rather than corrupting the board.
		if piece := s.pos.PieceAt(ttMove.From()); piece == board.NoPiece ||
			piece.Color() != s.pos.SideToMove {
			ttMove = board.NullMove
		}
	}
	if ttHit && !isPV && ply > 0 && ttDepth >= depth {
		switch ttBound {
		case BoundExact:
			return ttScore
		case BoundLower:
			if ttScore > alpha {
				alpha = ttScore
			}
		case BoundUpper:
			if ttScore < beta {
				beta = ttScore
			}
		}
		if alpha >= beta {
			return ttScore
		}
	}

	inCheck := s.pos.InCheck()
	if depth <= 0 && !inCheck {
		return s.quiescence(ply, alpha, beta)
	}
	extendCheck := inCheck
	if depth <= 0 {
		depth = 1 // when in check, resolve the check before standing pat
		extendCheck = false // the raised depth already is the extension
	}

	// Null-move pruning: hand the opponent a free move at reduced depth;
	// a fail-high means the position is good enough to cut. Unsound in
	// zugzwang, so pawn-only endings are excluded.
	if !isPV && !inCheck && depth >= 3 && ply > 0 &&
		s.pos.HasNonPawnMaterial() && s.evaluate() >= beta {
		reduction := 2 + depth/4
		undo := s.pos.MakeNullMove()
		s.hashes = append(s.hashes, s.pos.Hash)
		score := -s.negamax(depth-1-reduction, ply+1, -beta, -beta+1)
		s.hashes = s.hashes[:len(s.hashes)-1]
		s.pos.UnmakeNullMove(undo)
		if s.aborted {
			return 0
		}
		if score >= beta {
			if IsMateScore(score) {
				score = beta // an unsearched mate claim is not trustworthy
			}
			return score
		}
	}

	moves := s.pos.LegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return s.drawScore(ply)
	}

	s.order.scoreMoves(s.pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NullMove
	bound := BoundUpper
	var quietsTried [64]board.Move
	quietCount := 0

	for i := 0; i < moves.Len(); i++ {
		m := moves.PickBest(i)
		isQuiet := !m.IsCapture() && !m.IsPromotion()

		extension := 0
		if extendCheck {
			extension = 1
		}
		newDepth := depth - 1 + extension

		undo := s.makeMove(m)

		var score int
		switch {
		case i == 0:
			score = -s.negamax(newDepth, ply+1, -beta, -alpha)
		default:
			// Late-move reduction for quiets beyond the first few, then
			// a null-window probe; either can trigger a full re-search.
			reduction := 0
			if isQuiet && !isPV && depth >= 3 && i >= 4 && !inCheck && !s.pos.InCheck() {
				d, mi := depth, i
				if d > 63 {
					d = 63
				}
				if mi > 63 {
					mi = 63
				}
				reduction = lmrTable[d][mi]
				if reduction >= newDepth {
					reduction = newDepth - 1
				}
			}
			score = -s.negamax(newDepth-reduction, ply+1, -alpha-1, -alpha)
			if score > alpha && reduction > 0 {
				score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha)
			}
			if score > alpha && score < beta {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha)
			}
		}

		s.unmakeMove(m, undo)
		if s.aborted {
			return 0
		}

		if isQuiet && quietCount < len(quietsTried) {
			quietsTried[quietCount] = m
			quietCount++
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				bound = BoundExact
				s.pv.moves[ply][ply] = m
				copy(s.pv.moves[ply][ply+1:s.pv.length[ply+1]], s.pv.moves[ply+1][ply+1:s.pv.length[ply+1]])
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			if isQuiet {
				s.order.storeKiller(m, ply)
				s.order.bumpHistory(s.pos.SideToMove, m, depth)
				// The quiets searched before the cutoff failed to produce
				// one; remember that too.
				for q := 0; q < quietCount-1; q++ {
					s.order.punishHistory(s.pos.SideToMove, quietsTried[q], depth)
				}
			}
			s.tt.Store(s.pos.Hash, ply, depth, score, BoundLower, m)
			return score
		}
	}

	s.tt.Store(s.pos.Hash, ply, depth, bestScore, bound, bestMove)
	return bestScore
}

// quiescence expands captures and queen promotions until the position is
// quiet, with the stand-pat score as a floor and delta pruning against
// hopeless captures.
func (s *searcher) quiescence(ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return s.evaluate()
	}
	if s.nodes%pollInterval == 0 && s.checkAbort() {
		return 0
	}
	s.nodes++

	standPat := s.evaluate()
	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	const deltaMargin = 200

	moves := s.pos.NoisyMoves()
	s.order.scoreNoisyMoves(s.pos, moves)

	bestScore := standPat
	for i := 0; i < moves.Len(); i++ {
		m := moves.PickBest(i)

		if !m.IsPromotion() {
			// Delta pruning: even winning this capture cannot lift the
			// score back to alpha.
			victim := s.pos.PieceAt(m.To()).Type()
			if m.IsEnPassant() {
				victim = board.Pawn
			}
			if standPat+seeValues[victim]+deltaMargin <= alpha {
				continue
			}
			if SEE(s.pos, m) < 0 {
				continue
			}
		}

		undo := s.makeMove(m)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.unmakeMove(m, undo)
		if s.aborted {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
			}
		}
		if score >= beta {
			return score
		}
	}
	return bestScore
}
