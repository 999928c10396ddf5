package engine

import "github.com/nobriot/schnecken-bot/internal/board"

// Hand-crafted evaluation. Every term is computed as a middlegame and an
// endgame score, interpolated by the remaining non-pawn material and
// returned from the side to move's perspective.

// Piece values, midgame / endgame.
var (
	pieceValueMg = [6]int{82, 337, 365, 477, 1025, 0}
	pieceValueEg = [6]int{94, 281, 297, 512, 936, 0}
)

// Phase weights per piece type; 24 at full material, 0 with pawns only.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const maxPhase = 24

const tempoBonus = 12

// Mobility weight per safe destination square.
var (
	mobilityMg = [6]int{0, 4, 4, 2, 1, 0}
	mobilityEg = [6]int{0, 3, 4, 3, 2, 0}
)

// King safety.
var kingAttackWeight = [6]int{0, 18, 18, 30, 55, 0}

const (
	pawnShieldBonus  = 8
	openFileByKing   = 22
	semiOpenByKing   = 11
	kingSafetyMaxDiv = 2
)

// Pawn structure.
const (
	doubledPawnMg  = 11
	doubledPawnEg  = 18
	isolatedPawnMg = 14
	isolatedPawnEg = 17
	backwardPawnMg = 9
	backwardPawnEg = 12
)

// Passed pawns, indexed by relative rank.
var (
	passedBonusMg = [8]int{0, 5, 10, 22, 44, 80, 130, 0}
	passedBonusEg = [8]int{0, 12, 22, 40, 70, 120, 190, 0}
)

const (
	bishopPairMg = 28
	bishopPairEg = 46

	rookOpenFileMg     = 22
	rookOpenFileEg     = 14
	rookSemiOpenFileMg = 11
	rookSemiOpenFileEg = 7
)

// Piece-square tables from White's perspective, a1 in the first slot;
// Black looks them up through FlipRank.
var pstMg = [6][64]int{
	{ // pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		-11, 7, 7, -16, -16, 7, 7, -11,
		-6, -2, 4, 6, 6, 4, -2, -6,
		-5, 0, 8, 22, 22, 8, 0, -5,
		-4, 3, 10, 26, 26, 10, 3, -4,
		4, 10, 18, 28, 28, 18, 10, 4,
		48, 55, 58, 60, 60, 58, 55, 48,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // knight
		-52, -38, -30, -26, -26, -30, -38, -52,
		-36, -18, -4, 2, 2, -4, -18, -36,
		-26, 2, 12, 16, 16, 12, 2, -26,
		-20, 6, 18, 24, 24, 18, 6, -20,
		-16, 8, 20, 26, 26, 20, 8, -16,
		-22, 4, 14, 20, 20, 14, 4, -22,
		-34, -14, 0, 6, 6, 0, -14, -34,
		-60, -40, -28, -24, -24, -28, -40, -60,
	},
	{ // bishop
		-20, -10, -12, -8, -8, -12, -10, -20,
		-8, 8, 2, 4, 4, 2, 8, -8,
		-4, 10, 10, 8, 8, 10, 10, -4,
		-2, 6, 12, 14, 14, 12, 6, -2,
		-2, 6, 12, 14, 14, 12, 6, -2,
		-4, 8, 10, 8, 8, 10, 8, -4,
		-8, 4, 2, 4, 4, 2, 4, -8,
		-18, -8, -10, -6, -6, -10, -8, -18,
	},
	{ // rook
		-2, 0, 4, 8, 8, 4, 0, -2,
		-6, -2, 0, 4, 4, 0, -2, -6,
		-6, -2, 0, 2, 2, 0, -2, -6,
		-6, -2, 0, 2, 2, 0, -2, -6,
		-4, 0, 2, 4, 4, 2, 0, -4,
		-2, 2, 6, 8, 8, 6, 2, -2,
		10, 14, 16, 18, 18, 16, 14, 10,
		4, 6, 8, 10, 10, 8, 6, 4,
	},
	{ // queen
		-18, -10, -8, -4, -4, -8, -10, -18,
		-8, 0, 2, 2, 2, 2, 0, -8,
		-6, 2, 6, 6, 6, 6, 2, -6,
		-2, 2, 6, 8, 8, 6, 2, -2,
		-2, 2, 6, 8, 8, 6, 2, -2,
		-6, 2, 6, 6, 6, 6, 2, -6,
		-8, 0, 2, 2, 2, 2, 0, -8,
		-18, -10, -8, -4, -4, -8, -10, -18,
	},
	{ // king
		24, 32, 14, 0, 0, 18, 34, 26,
		20, 20, -2, -8, -8, -2, 20, 20,
		-12, -18, -22, -26, -26, -22, -18, -12,
		-24, -30, -34, -40, -40, -34, -30, -24,
		-32, -38, -42, -48, -48, -42, -38, -32,
		-36, -42, -46, -52, -52, -46, -42, -36,
		-38, -44, -48, -54, -54, -48, -44, -38,
		-40, -46, -50, -56, -56, -50, -46, -40,
	},
}

var pstEg = [6][64]int{
	{ // pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		2, 2, 4, 6, 6, 4, 2, 2,
		4, 4, 6, 8, 8, 6, 4, 4,
		8, 8, 10, 12, 12, 10, 8, 8,
		18, 18, 20, 22, 22, 20, 18, 18,
		36, 36, 38, 40, 40, 38, 36, 36,
		72, 74, 76, 78, 78, 76, 74, 72,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // knight
		-40, -28, -20, -16, -16, -20, -28, -40,
		-26, -12, -4, 0, 0, -4, -12, -26,
		-18, -2, 8, 12, 12, 8, -2, -18,
		-14, 2, 14, 20, 20, 14, 2, -14,
		-14, 2, 14, 20, 20, 14, 2, -14,
		-18, -2, 8, 12, 12, 8, -2, -18,
		-26, -12, -4, 0, 0, -4, -12, -26,
		-40, -28, -20, -16, -16, -20, -28, -40,
	},
	{ // bishop
		-16, -8, -10, -6, -6, -10, -8, -16,
		-8, 0, 2, 4, 4, 2, 0, -8,
		-6, 4, 8, 10, 10, 8, 4, -6,
		-4, 6, 10, 14, 14, 10, 6, -4,
		-4, 6, 10, 14, 14, 10, 6, -4,
		-6, 4, 8, 10, 10, 8, 4, -6,
		-8, 0, 2, 4, 4, 2, 0, -8,
		-16, -8, -10, -6, -6, -10, -8, -16,
	},
	{ // rook
		0, 2, 4, 4, 4, 4, 2, 0,
		0, 2, 4, 4, 4, 4, 2, 0,
		0, 2, 4, 4, 4, 4, 2, 0,
		2, 4, 6, 6, 6, 6, 4, 2,
		2, 4, 6, 6, 6, 6, 4, 2,
		4, 6, 8, 8, 8, 8, 6, 4,
		10, 12, 14, 14, 14, 14, 12, 10,
		6, 8, 10, 10, 10, 10, 8, 6,
	},
	{ // queen
		-16, -10, -8, -6, -6, -8, -10, -16,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-6, 0, 6, 8, 8, 6, 0, -6,
		-4, 2, 8, 12, 12, 8, 2, -4,
		-4, 2, 8, 12, 12, 8, 2, -4,
		-6, 0, 6, 8, 8, 6, 0, -6,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-16, -10, -8, -6, -6, -8, -10, -16,
	},
	{ // king
		-50, -34, -24, -18, -18, -24, -34, -50,
		-30, -14, -6, 0, 0, -6, -14, -30,
		-22, -4, 12, 20, 20, 12, -4, -22,
		-18, 2, 22, 32, 32, 22, 2, -18,
		-18, 2, 22, 32, 32, 22, 2, -18,
		-22, -4, 12, 20, 20, 12, -4, -22,
		-30, -14, -6, 0, 0, -6, -14, -30,
		-50, -34, -24, -18, -18, -24, -34, -50,
	},
}

// Evaluate scores the position in centipawns from the side to move's
// perspective. A nil pawn cache is allowed.
func Evaluate(pos *board.Position, pawns *PawnCache) int {
	var mg, eg, phase int

	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces(side, pt)
			phase += phaseWeight[pt] * bb.Count()
			for bb != 0 {
				sq := bb.Pop()
				psq := sq
				if side == board.Black {
					psq = sq.FlipRank()
				}
				mg += sign * (pieceValueMg[pt] + pstMg[pt][psq])
				eg += sign * (pieceValueEg[pt] + pstEg[pt][psq])
			}
		}
	}

	mobMg, mobEg := mobility(pos)
	mg += mobMg
	eg += mobEg

	mg += kingSafety(pos)

	ppMg, ppEg := passedPawns(pos)
	mg += ppMg
	eg += ppEg

	psMg, psEg := pawnStructure(pos, pawns)
	mg += psMg
	eg += psEg

	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		if pos.Pieces(side, board.Bishop).Count() >= 2 {
			mg += sign * bishopPairMg
			eg += sign * bishopPairEg
		}
		rfMg, rfEg := rookFiles(pos, side)
		mg += sign * rfMg
		eg += sign * rfEg
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score + tempoBonus
}

// mobility counts safe pseudo-legal destinations for the minors, rooks
// and queens. Squares covered by enemy pawns or occupied by own pieces
// do not count.
func mobility(pos *board.Position) (mg, eg int) {
	occupied := pos.Occupied()
	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		them := side.Opponent()
		unsafe := pos.Pieces(them, board.Pawn).PawnCaptures(them) | pos.ByColor(side)

		for pt := board.Knight; pt <= board.Queen; pt++ {
			bb := pos.Pieces(side, pt)
			for bb != 0 {
				sq := bb.Pop()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, occupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, occupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, occupied)
				}
				n := (attacks &^ unsafe).Count()
				mg += sign * mobilityMg[pt] * n
				eg += sign * mobilityEg[pt] * n
			}
		}
	}
	return mg, eg
}

// kingSafety penalizes attackers aimed at the king ring, broken pawn
// shields and open files toward the king. Midgame only; a cornered king
// is an asset once the queens are gone.
func kingSafety(pos *board.Position) int {
	score := 0
	occupied := pos.Occupied()

	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		them := side.Opponent()
		ksq := pos.KingSquare(side)
		ring := board.KingAttacks(ksq) | board.Bit(ksq)
		ring |= ring.Forward(side)

		// Attack pressure on the ring.
		pressure := 0
		for pt := board.Knight; pt <= board.Queen; pt++ {
			bb := pos.Pieces(them, pt)
			for bb != 0 {
				sq := bb.Pop()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, occupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, occupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, occupied)
				}
				if hits := (attacks & ring).Count(); hits > 0 {
					pressure += kingAttackWeight[pt] * hits
				}
			}
		}
		score -= sign * pressure / kingSafetyMaxDiv

		// Pawn shield on the three files around the king.
		ourPawns := pos.Pieces(side, board.Pawn)
		theirPawns := pos.Pieces(them, board.Pawn)
		for df := -1; df <= 1; df++ {
			file := ksq.File() + df
			if file < 0 || file > 7 {
				continue
			}
			fileMask := board.FileBB[file]
			if ourPawns&ring&fileMask != 0 {
				score += sign * pawnShieldBonus
			}
			switch {
			case fileMask&(ourPawns|theirPawns) == 0:
				score -= sign * openFileByKing
			case fileMask&ourPawns == 0:
				score -= sign * semiOpenByKing
			}
		}
	}
	return score
}

// passedPawns scores pawns with a clear front span, scaled by rank, plus
// an endgame king-distance term.
func passedPawns(pos *board.Position) (mg, eg int) {
	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		them := side.Opponent()
		theirPawns := pos.Pieces(them, board.Pawn)
		ourPawns := pos.Pieces(side, board.Pawn)

		bb := ourPawns
		for bb != 0 {
			sq := bb.Pop()
			if board.PassedPawnSpan(side, sq)&theirPawns != 0 {
				continue
			}
			rel := sq.RelativeRank(side)
			bonusMg := passedBonusMg[rel]
			bonusEg := passedBonusEg[rel]

			// Support by an own pawn strengthens the runner.
			if board.PawnAttacks(them, sq)&ourPawns != 0 {
				bonusMg += 12
				bonusEg += 18
			}

			// Kings matter in the endgame: ours close, theirs far.
			bonusEg += 6 * chebyshev(pos.KingSquare(them), sq)
			bonusEg -= 4 * chebyshev(pos.KingSquare(side), sq)

			mg += sign * bonusMg
			eg += sign * bonusEg
		}
	}
	return mg, eg
}

func chebyshev(a, b board.Square) int {
	df := absOfInt(a.File() - b.File())
	dr := absOfInt(a.Rank() - b.Rank())
	if df > dr {
		return df
	}
	return dr
}

func absOfInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// pawnStructure scores doubled, isolated and backward pawns, served from
// the pawn cache when the formation was seen before.
func pawnStructure(pos *board.Position, pawns *PawnCache) (mg, eg int) {
	if pawns != nil {
		if mg, eg, ok := pawns.probe(pos.PawnHash); ok {
			return mg, eg
		}
	}

	for side := board.White; side <= board.Black; side++ {
		sign := 1
		if side == board.Black {
			sign = -1
		}
		them := side.Opponent()
		ourPawns := pos.Pieces(side, board.Pawn)
		theirPawns := pos.Pieces(them, board.Pawn)

		for file := 0; file < 8; file++ {
			onFile := ourPawns & board.FileBB[file]
			if onFile == 0 {
				continue
			}
			if n := onFile.Count(); n > 1 {
				mg -= sign * doubledPawnMg * (n - 1)
				eg -= sign * doubledPawnEg * (n - 1)
			}
			var neighbors board.Bitboard
			if file > 0 {
				neighbors |= board.FileBB[file-1]
			}
			if file < 7 {
				neighbors |= board.FileBB[file+1]
			}
			if ourPawns&neighbors == 0 {
				mg -= sign * isolatedPawnMg * onFile.Count()
				eg -= sign * isolatedPawnEg * onFile.Count()
				continue
			}

			// Backward: no friendly pawn beside or behind, and the stop
			// square is covered by an enemy pawn.
			bb := onFile
			for bb != 0 {
				sq := bb.Pop()
				if ourPawns&backwardSupportSpan(side, sq) != 0 {
					continue
				}
				stop := board.Bit(sq).Forward(side)
				if stop&theirPawns.PawnCaptures(them) != 0 {
					mg -= sign * backwardPawnMg
					eg -= sign * backwardPawnEg
				}
			}
		}
	}

	if pawns != nil {
		pawns.store(pos.PawnHash, mg, eg)
	}
	return mg, eg
}

// backwardSupportSpan covers the squares on adjacent files level with or
// behind sq from side's point of view.
func backwardSupportSpan(side board.Color, sq board.Square) board.Bitboard {
	var span board.Bitboard
	if sq.File() > 0 {
		span |= board.FileBB[sq.File()-1]
	}
	if sq.File() < 7 {
		span |= board.FileBB[sq.File()+1]
	}
	if side == board.White {
		return span & (^board.Bitboard(0) >> (8 * (7 - sq.Rank())))
	}
	return span & (^board.Bitboard(0) << (8 * sq.Rank()))
}

// rookFiles rewards rooks on open and half-open files.
func rookFiles(pos *board.Position, side board.Color) (mg, eg int) {
	ourPawns := pos.Pieces(side, board.Pawn)
	theirPawns := pos.Pieces(side.Opponent(), board.Pawn)
	rooks := pos.Pieces(side, board.Rook)
	for rooks != 0 {
		file := board.FileBB[rooks.Pop().File()]
		switch {
		case file&(ourPawns|theirPawns) == 0:
			mg += rookOpenFileMg
			eg += rookOpenFileEg
		case file&ourPawns == 0:
			mg += rookSemiOpenFileMg
			eg += rookSemiOpenFileEg
		}
	}
	return mg, eg
}
