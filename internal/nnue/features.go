package nnue

import "github.com/nobriot/schnecken-bot/internal/board"

// Feature indexing. A feature is (perspective king square, piece kind,
// piece square); the board is mirrored for Black's perspective so both
// sides see the same geometry, and piece colors flip with it.

// pieceKind maps a non-king piece to 0..9: own pieces first, then the
// opponent's, as seen from the perspective.
func pieceKind(pt board.PieceType, pieceColor, perspective board.Color) int {
	if pt >= board.King {
		return -1
	}
	kind := int(pt)
	if pieceColor != perspective {
		kind += 5
	}
	return kind
}

// featureIndex returns the input index of a piece from one perspective,
// or -1 for kings.
func featureIndex(perspective board.Color, kingSq board.Square,
	pt board.PieceType, pieceColor board.Color, sq board.Square) int {

	kind := pieceKind(pt, pieceColor, perspective)
	if kind < 0 {
		return -1
	}
	if perspective == board.Black {
		kingSq = kingSq.FlipRank()
		sq = sq.FlipRank()
	}
	return (int(kingSq)*numPieceKinds+kind)*64 + int(sq)
}

// activeFeatures appends the feature indices of every non-king piece on
// the board from the given perspective.
func activeFeatures(pos *board.Position, perspective board.Color, out []int) []int {
	kingSq := pos.KingSquare(perspective)
	for side := board.White; side <= board.Black; side++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			bb := pos.Pieces(side, pt)
			for bb != 0 {
				out = append(out, featureIndex(perspective, kingSq, pt, side, bb.Pop()))
			}
		}
	}
	return out
}

// moveDelta collects the features a just-made move removed and added for
// one perspective. Valid only when neither king moved.
func moveDelta(pos *board.Position, perspective board.Color, m board.Move,
	captured board.Piece) (added, removed [3]int, nAdd, nRem int) {

	kingSq := pos.KingSquare(perspective)
	from, to := m.From(), m.To()
	moved := pos.PieceAt(to) // the move is already on the board
	movedType := moved.Type()
	if m.IsPromotion() {
		removed[nRem] = featureIndex(perspective, kingSq, board.Pawn, moved.Color(), from)
		nRem++
	} else {
		removed[nRem] = featureIndex(perspective, kingSq, movedType, moved.Color(), from)
		nRem++
	}
	added[nAdd] = featureIndex(perspective, kingSq, movedType, moved.Color(), to)
	nAdd++

	if captured != board.NoPiece {
		capSq := to
		if m.IsEnPassant() {
			if moved.Color() == board.White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
		}
		removed[nRem] = featureIndex(perspective, kingSq, captured.Type(), captured.Color(), capSq)
		nRem++
	}
	return added, removed, nAdd, nRem
}
