package engine

import "github.com/nobriot/schnecken-bot/internal/board"

// Move ordering score bands. The bands keep the classes strictly
// separated: TT move, winning captures, killers, quiet history, losing
// captures last.
const (
	scoreTTMove      int32 = 1 << 30
	scoreGoodCapture int32 = 1 << 24
	scoreKiller1     int32 = 1<<24 - 1000
	scoreKiller2     int32 = 1<<24 - 2000
	scoreBadCapture  int32 = -(1 << 24)

	historyMax = 1 << 14
)

// mvvLVA ranks captures by victim value first, cheapest attacker second.
func mvvLVA(victim, attacker board.PieceType) int32 {
	return int32(victim)*8 - int32(attacker)
}

// ordering holds the per-search move ordering state: two killer slots per
// ply and a side/from/to history of quiet moves that caused cutoffs.
type ordering struct {
	killers [MaxPly][2]board.Move
	history [2][64][64]int32
}

// clear wipes the killers and halves the history so earlier searches
// still bias ordering without dominating it.
func (o *ordering) clear() {
	for ply := range o.killers {
		o.killers[ply][0] = board.NullMove
		o.killers[ply][1] = board.NullMove
	}
	for side := range o.history {
		for from := range o.history[side] {
			for to := range o.history[side][from] {
				o.history[side][from][to] /= 2
			}
		}
	}
}

// reset wipes everything; used by NewGame.
func (o *ordering) reset() {
	*o = ordering{}
}

// storeKiller records a quiet cutoff move for the ply.
func (o *ordering) storeKiller(m board.Move, ply int) {
	if o.killers[ply][0] != m {
		o.killers[ply][1] = o.killers[ply][0]
		o.killers[ply][0] = m
	}
}

// bumpHistory rewards a quiet move that caused a cutoff and keeps the
// table bounded.
func (o *ordering) bumpHistory(side board.Color, m board.Move, depth int) {
	h := &o.history[side][m.From()][m.To()]
	*h += int32(depth * depth)
	if *h > historyMax {
		for from := range o.history[side] {
			for to := range o.history[side][from] {
				o.history[side][from][to] /= 2
			}
		}
	}
}

// punishHistory lowers a quiet move that was searched before a cutoff
// without producing one.
func (o *ordering) punishHistory(side board.Color, m board.Move, depth int) {
	h := &o.history[side][m.From()][m.To()]
	*h -= int32(depth * depth)
	if *h < -historyMax {
		*h = -historyMax
	}
}

// scoreMoves fills the list's score slots for PickBest selection.
func (o *ordering) scoreMoves(pos *board.Position, ml *board.MoveList, ply int, ttMove board.Move) {
	us := pos.SideToMove
	for i := 0; i < ml.Len(); i++ {
		m := ml.Move(i)
		var score int32
		switch {
		case m == ttMove:
			score = scoreTTMove
		case m.IsCapture():
			victim := pos.PieceAt(m.To()).Type()
			if m.IsEnPassant() {
				victim = board.Pawn
			}
			attacker := pos.PieceAt(m.From()).Type()
			if SEE(pos, m) >= 0 {
				score = scoreGoodCapture + mvvLVA(victim, attacker)
			} else {
				score = scoreBadCapture + mvvLVA(victim, attacker)
			}
		case m.IsPromotion():
			score = scoreGoodCapture - 100 + int32(m.Promotion())
		case m == o.killers[ply][0]:
			score = scoreKiller1
		case m == o.killers[ply][1]:
			score = scoreKiller2
		default:
			score = o.history[us][m.From()][m.To()]
		}
		ml.SetScore(i, score)
	}
}

// scoreNoisyMoves is the quiescence variant: captures by MVV-LVA, queen
// promotions on top.
func (o *ordering) scoreNoisyMoves(pos *board.Position, ml *board.MoveList) {
	for i := 0; i < ml.Len(); i++ {
		m := ml.Move(i)
		var score int32
		if m.IsPromotion() {
			score = scoreGoodCapture + 1000
		} else {
			victim := pos.PieceAt(m.To()).Type()
			if m.IsEnPassant() {
				victim = board.Pawn
			}
			score = scoreGoodCapture + mvvLVA(victim, pos.PieceAt(m.From()).Type())
		}
		ml.SetScore(i, score)
	}
}
