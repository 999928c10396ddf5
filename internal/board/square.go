// Package board implements the chess domain model: bitboard position
// representation, legal move generation and the standard notations.
package board

import "fmt"

// Square indexes the 64 board squares file-major: a1=0, h1=7, a8=56, h8=63.
type Square uint8

const (
	A1 Square = iota
	B1
	C1
	D1
	E1
	F1
	G1
	H1
	A2
	B2
	C2
	D2
	E2
	F2
	G2
	H2
	A3
	B3
	C3
	D3
	E3
	F3
	G3
	H3
	A4
	B4
	C4
	D4
	E4
	F4
	G4
	H4
	A5
	B5
	C5
	D5
	E5
	F5
	G5
	H5
	A6
	B6
	C6
	D6
	E6
	F6
	G6
	H6
	A7
	B7
	C7
	D7
	E7
	F7
	G7
	H7
	A8
	B8
	C8
	D8
	E8
	F8
	G8
	H8
	NoSquare Square = 64
)

// SquareOf builds a square from 0-indexed file and rank.
func SquareOf(file, rank int) Square {
	return Square(rank<<3 | file)
}

// File returns the 0-indexed file (0=a .. 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the 0-indexed rank (0=first .. 7=eighth).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

// FlipRank mirrors the square vertically, mapping a1 to a8.
func (sq Square) FlipRank() Square {
	return sq ^ 56
}

// RelativeRank returns the rank as seen by side: for Black, rank 0 is
// the eighth rank.
func (sq Square) RelativeRank(side Color) int {
	if side == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// OK reports whether sq refers to a real board square.
func (sq Square) OK() bool {
	return sq < NoSquare
}

// String returns the algebraic name of the square ("e4"), or "-" for
// NoSquare.
func (sq Square) String() string {
	if !sq.OK() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return SquareOf(int(s[0]-'a'), int(s[1]-'1')), nil
}
