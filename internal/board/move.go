package board

import "fmt"

// Move is a packed 16-bit move: bits 0-5 the from square, bits 6-11 the
// to square, bits 12-15 a flag nibble.
type Move uint16

// NullMove is the zero value; it never encodes a real move (a1a1 quiet).
const NullMove Move = 0

// Move flag nibble. Bit 2 marks captures, bit 3 marks promotions; the
// promotion piece lives in the low two bits (0=N .. 3=Q).
const (
	FlagQuiet uint16 = iota
	FlagDoublePush
	FlagKingCastle
	FlagQueenCastle
	FlagCapture
	FlagEnPassant
	_
	_
	FlagPromoKnight
	FlagPromoBishop
	FlagPromoRook
	FlagPromoQueen
	FlagPromoCaptureKnight
	FlagPromoCaptureBishop
	FlagPromoCaptureRook
	FlagPromoCaptureQueen
)

// NewMove packs a move from its components.
func NewMove(from, to Square, flag uint16) Move {
	return Move(from) | Move(to)<<6 | Move(flag)<<12
}

// NewPromotion packs a promotion to promo, as a capture when capture is set.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	flag := FlagPromoKnight + uint16(promo-Knight)
	if capture {
		flag |= 0x4
	}
	return NewMove(from, to, flag)
}

// From returns the origin square.
func (m Move) From() Square { return Square(m & 0x3F) }

// To returns the destination square.
func (m Move) To() Square { return Square(m>>6) & 0x3F }

// Flag returns the flag nibble.
func (m Move) Flag() uint16 { return uint16(m >> 12) }

// IsCapture reports whether the move captures, en passant included.
func (m Move) IsCapture() bool { return m.Flag()&0x4 != 0 }

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool { return m.Flag()&0x8 != 0 }

// IsEnPassant reports whether the move is an en-passant capture.
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }

// IsCastle reports whether the move castles either way.
func (m Move) IsCastle() bool {
	return m.Flag() == FlagKingCastle || m.Flag() == FlagQueenCastle
}

// IsDoublePush reports whether the move is a two-square pawn advance.
func (m Move) IsDoublePush() bool { return m.Flag() == FlagDoublePush }

// Promotion returns the promotion piece type; only meaningful when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return Knight + PieceType(m.Flag()&0x3)
}

// String renders the move in long algebraic (UCI) form, e.g. "e2e4" or
// "e7e8q".
func (m Move) String() string {
	if m == NullMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseUCIMove resolves a long-algebraic move string against the legal
// moves of pos, so the returned move carries the right flag nibble.
// Returns an error for malformed input or for a move that is not legal
// in pos.
func ParseUCIMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NullMove, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NullMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NullMove, err
	}
	var promo PieceType = NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NullMove, fmt.Errorf("invalid promotion piece %q", s[4])
		}
	}

	legal := pos.LegalMoves()
	for i := 0; i < legal.Len(); i++ {
		m := legal.Move(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() != (promo != NoPieceType) {
			continue
		}
		if m.IsPromotion() && m.Promotion() != promo {
			continue
		}
		return m, nil
	}
	return NullMove, fmt.Errorf("illegal move %q", s)
}

// MoveList is a bounded move container used on the search hot path. Each
// slot carries an auxiliary score used by move ordering.
type MoveList struct {
	moves  [256]Move
	scores [256]int32
	size   int
}

// Push appends a move with a zero score.
func (ml *MoveList) Push(m Move) {
	ml.moves[ml.size] = m
	ml.size++
}

// Len returns the number of stored moves.
func (ml *MoveList) Len() int { return ml.size }

// Move returns the move at index i.
func (ml *MoveList) Move(i int) Move { return ml.moves[i] }

// Score returns the ordering score at index i.
func (ml *MoveList) Score(i int) int32 { return ml.scores[i] }

// SetScore sets the ordering score at index i.
func (ml *MoveList) SetScore(i int, s int32) { ml.scores[i] = s }

// Swap exchanges two entries, scores included.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
	ml.scores[i], ml.scores[j] = ml.scores[j], ml.scores[i]
}

// PickBest moves the highest-scored entry in [i, len) to index i. Used
// for lazy selection sort: only the moves actually searched get sorted.
func (ml *MoveList) PickBest(i int) Move {
	best := i
	for j := i + 1; j < ml.size; j++ {
		if ml.scores[j] > ml.scores[best] {
			best = j
		}
	}
	if best != i {
		ml.Swap(i, best)
	}
	return ml.moves[i]
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.size; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Clear empties the list.
func (ml *MoveList) Clear() { ml.size = 0 }
