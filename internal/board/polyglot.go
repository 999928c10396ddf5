package board

// Polyglot hashing, needed to probe polyglot-format opening books. The
// key set is generated with the package's seeded xorshift64* generator,
// not taken from the published polyglot key table, so only books built
// with this same key set probe correctly. It is separate from the
// engine's own Zobrist keys.
var (
	polyglotPiece     [12][64]uint64
	polyglotCastle    [4]uint64
	polyglotEnPassant [8]uint64
	polyglotTurn      uint64
)

func init() {
	rng := zobristRNG{state: 0x37B4A4B3F0D1C0D0}
	for kind := 0; kind < 12; kind++ {
		for sq := 0; sq < 64; sq++ {
			polyglotPiece[kind][sq] = rng.next()
		}
	}
	for i := range polyglotCastle {
		polyglotCastle[i] = rng.next()
	}
	for i := range polyglotEnPassant {
		polyglotEnPassant[i] = rng.next()
	}
	polyglotTurn = rng.next()
}

// PolyglotHash returns the polyglot key of the position. Piece kinds are
// numbered black-pawn first as the format prescribes, and the en-passant
// file only participates when a capture is actually possible.
func (p *Position) PolyglotHash() uint64 {
	var h uint64
	for side := White; side <= Black; side++ {
		for pt := Pawn; pt <= King; pt++ {
			kind := 2*int(pt) + 1 - int(side) // bp=0, wp=1, bn=2, ...
			bb := p.pieces[side][pt]
			for bb != 0 {
				h ^= polyglotPiece[kind][bb.Pop()]
			}
		}
	}

	if p.Castling&WhiteOO != 0 {
		h ^= polyglotCastle[0]
	}
	if p.Castling&WhiteOOO != 0 {
		h ^= polyglotCastle[1]
	}
	if p.Castling&BlackOO != 0 {
		h ^= polyglotCastle[2]
	}
	if p.Castling&BlackOOO != 0 {
		h ^= polyglotCastle[3]
	}

	if p.EnPassant != NoSquare {
		capturers := pawnAttacks[p.SideToMove.Opponent()][p.EnPassant] & p.pieces[p.SideToMove][Pawn]
		if capturers != 0 {
			h ^= polyglotEnPassant[p.EnPassant.File()]
		}
	}

	if p.SideToMove == White {
		h ^= polyglotTurn
	}
	return h
}
