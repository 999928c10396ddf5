package engine

import "github.com/nobriot/schnecken-bot/internal/board"

// seeValues are the simplified piece values the exchange evaluator uses.
var seeValues = [7]int{100, 320, 330, 500, 900, 20000, 0}

// SEE returns the static exchange evaluation of a capture in centipawns:
// the material outcome of the capture sequence on the target square,
// assuming both sides keep capturing with their least valuable attacker
// while it pays off. Quiet moves evaluate as 0.
func SEE(pos *board.Position, m board.Move) int {
	if !m.IsCapture() {
		return 0
	}

	from, to := m.From(), m.To()
	victim := pos.PieceAt(to).Type()
	if m.IsEnPassant() {
		victim = board.Pawn
	}
	attacker := pos.PieceAt(from).Type()

	// gain[d] is the best material balance after d captures, from the
	// perspective of the side making capture d.
	var gain [32]int
	depth := 0
	gain[0] = seeValues[victim]

	occupied := pos.Occupied() &^ board.Bit(from)
	if m.IsEnPassant() {
		capSq := to - 8
		if pos.SideToMove == board.Black {
			capSq = to + 8
		}
		occupied &^= board.Bit(capSq)
	}

	side := pos.SideToMove.Opponent()
	attackers := pos.AttackersTo(to, occupied) & occupied
	target := attacker

	for {
		ours := attackers & pos.ByColor(side)
		if ours == 0 {
			break
		}
		depth++
		gain[depth] = seeValues[target] - gain[depth-1]
		if max(-gain[depth-1], gain[depth]) < 0 {
			break
		}

		// Pick the least valuable attacker and remove it from the board.
		var fromBB board.Bitboard
		for pt := board.Pawn; pt <= board.King; pt++ {
			if subset := ours & pos.Pieces(side, pt); subset != 0 {
				fromBB = subset & -subset
				target = pt
				break
			}
		}
		occupied &^= fromBB

		// Sliders may now see through the vacated square.
		attackers |= board.BishopAttacks(to, occupied) &
			(pos.Pieces(board.White, board.Bishop) | pos.Pieces(board.Black, board.Bishop) |
				pos.Pieces(board.White, board.Queen) | pos.Pieces(board.Black, board.Queen))
		attackers |= board.RookAttacks(to, occupied) &
			(pos.Pieces(board.White, board.Rook) | pos.Pieces(board.Black, board.Rook) |
				pos.Pieces(board.White, board.Queen) | pos.Pieces(board.Black, board.Queen))
		attackers &= occupied

		side = side.Opponent()
	}

	for depth > 0 {
		gain[depth-1] = -max(-gain[depth-1], gain[depth])
		depth--
	}
	return gain[0]
}
