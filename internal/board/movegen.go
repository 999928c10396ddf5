package board

// Move generation: pseudo-legal moves are produced with pure bitboard
// arithmetic and filtered down to legal moves with a pin/checker mask.
// The filter only falls back to make/unmake verification for en passant,
// the one case the masks cannot decide; king steps are checked against
// the occupancy with the king removed.

// LegalMoves returns every legal move in the position.
func (p *Position) LegalMoves() *MoveList {
	ml := &MoveList{}
	p.genPseudoLegal(ml, false)
	return p.keepLegal(ml)
}

// NoisyMoves returns the legal captures and queen promotions; the move
// set quiescence search expands.
func (p *Position) NoisyMoves() *MoveList {
	ml := &MoveList{}
	p.genPseudoLegal(ml, true)
	return p.keepLegal(ml)
}

// PseudoLegalMoves returns the unfiltered move set; some entries may
// leave the mover's king in check. Exposed for the generator-agreement
// tests.
func (p *Position) PseudoLegalMoves() *MoveList {
	ml := &MoveList{}
	p.genPseudoLegal(ml, false)
	return ml
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	ml := &MoveList{}
	p.genPseudoLegal(ml, false)
	pinned := p.PinnedPieces()
	for i := 0; i < ml.Len(); i++ {
		if p.isLegal(ml.Move(i), pinned) {
			return true
		}
	}
	return false
}

// genPseudoLegal fills ml with pseudo-legal moves. With noisyOnly set,
// only captures and queen promotions are produced.
func (p *Position) genPseudoLegal(ml *MoveList, noisyOnly bool) {
	us := p.SideToMove
	enemies := p.byColor[us.Opponent()]
	targets := ^p.byColor[us]
	if noisyOnly {
		targets = enemies
	}

	p.genPawnMoves(ml, noisyOnly)

	for _, pt := range [4]PieceType{Knight, Bishop, Rook, Queen} {
		pieces := p.pieces[us][pt]
		for pieces != 0 {
			from := pieces.Pop()
			var attacks Bitboard
			switch pt {
			case Knight:
				attacks = knightAttacks[from]
			case Bishop:
				attacks = BishopAttacks(from, p.occupied)
			case Rook:
				attacks = RookAttacks(from, p.occupied)
			case Queen:
				attacks = QueenAttacks(from, p.occupied)
			}
			p.pushMoves(ml, from, attacks&targets, enemies)
		}
	}

	ksq := p.kingSq[us]
	p.pushMoves(ml, ksq, kingAttacks[ksq]&targets, enemies)

	if !noisyOnly {
		p.genCastles(ml)
	}
}

// pushMoves appends one move per destination, flagging captures.
func (p *Position) pushMoves(ml *MoveList, from Square, dests, enemies Bitboard) {
	for dests != 0 {
		to := dests.Pop()
		flag := FlagQuiet
		if enemies.Has(to) {
			flag = FlagCapture
		}
		ml.Push(NewMove(from, to, flag))
	}
}

func (p *Position) genPawnMoves(ml *MoveList, noisyOnly bool) {
	us := p.SideToMove
	them := us.Opponent()
	pawns := p.pieces[us][Pawn]
	enemies := p.byColor[them]
	empty := ^p.occupied

	promoRank := Rank8BB
	doubleRank := Rank3BB // single-push targets that may push again
	forward := 8
	if us == Black {
		promoRank = Rank1BB
		doubleRank = Rank6BB
		forward = -8
	}

	push1 := pawns.Forward(us) & empty
	push2 := (push1 & doubleRank).Forward(us) & empty
	capsWest := pawns.Forward(us).West() & enemies
	capsEast := pawns.Forward(us).East() & enemies

	if !noisyOnly {
		for bb := push1 &^ promoRank; bb != 0; {
			to := bb.Pop()
			ml.Push(NewMove(Square(int(to)-forward), to, FlagQuiet))
		}
		for bb := push2; bb != 0; {
			to := bb.Pop()
			ml.Push(NewMove(Square(int(to)-2*forward), to, FlagDoublePush))
		}
	}

	for bb := capsWest &^ promoRank; bb != 0; {
		to := bb.Pop()
		ml.Push(NewMove(Square(int(to)-forward+1), to, FlagCapture))
	}
	for bb := capsEast &^ promoRank; bb != 0; {
		to := bb.Pop()
		ml.Push(NewMove(Square(int(to)-forward-1), to, FlagCapture))
	}

	pushPromotions := func(from, to Square, capture bool) {
		if noisyOnly {
			ml.Push(NewPromotion(from, to, Queen, capture))
			return
		}
		for pt := Queen; pt >= Knight; pt-- {
			ml.Push(NewPromotion(from, to, pt, capture))
		}
	}
	for bb := push1 & promoRank; bb != 0; {
		to := bb.Pop()
		pushPromotions(Square(int(to)-forward), to, false)
	}
	for bb := capsWest & promoRank; bb != 0; {
		to := bb.Pop()
		pushPromotions(Square(int(to)-forward+1), to, true)
	}
	for bb := capsEast & promoRank; bb != 0; {
		to := bb.Pop()
		pushPromotions(Square(int(to)-forward-1), to, true)
	}

	if p.EnPassant != NoSquare {
		attackers := pawnAttacks[them][p.EnPassant] & pawns
		for attackers != 0 {
			ml.Push(NewMove(attackers.Pop(), p.EnPassant, FlagEnPassant))
		}
	}
}

func (p *Position) genCastles(ml *MoveList) {
	if p.checkers != 0 {
		return
	}
	us := p.SideToMove
	them := us.Opponent()

	type castle struct {
		right      CastlingRights
		kingFrom   Square
		kingTo     Square
		emptyMask  Bitboard
		checkedSqs [2]Square // squares the king crosses, destination included
		flag       uint16
	}
	var candidates [2]castle
	if us == White {
		candidates = [2]castle{
			{WhiteOO, E1, G1, Bit(F1) | Bit(G1), [2]Square{F1, G1}, FlagKingCastle},
			{WhiteOOO, E1, C1, Bit(B1) | Bit(C1) | Bit(D1), [2]Square{D1, C1}, FlagQueenCastle},
		}
	} else {
		candidates = [2]castle{
			{BlackOO, E8, G8, Bit(F8) | Bit(G8), [2]Square{F8, G8}, FlagKingCastle},
			{BlackOOO, E8, C8, Bit(B8) | Bit(C8) | Bit(D8), [2]Square{D8, C8}, FlagQueenCastle},
		}
	}

	for _, c := range candidates {
		if p.Castling&c.right == 0 || p.occupied&c.emptyMask != 0 {
			continue
		}
		if p.IsAttacked(c.checkedSqs[0], them) || p.IsAttacked(c.checkedSqs[1], them) {
			continue
		}
		ml.Push(NewMove(c.kingFrom, c.kingTo, c.flag))
	}
}

// PinnedPieces returns the side to move's pieces pinned to their king.
func (p *Position) PinnedPieces() Bitboard {
	us := p.SideToMove
	them := us.Opponent()
	ksq := p.kingSq[us]
	var pinned Bitboard

	snipers := (RookAttacks(ksq, 0) & p.rookSliders(them)) |
		(BishopAttacks(ksq, 0) & p.bishopSliders(them))
	for snipers != 0 {
		sniper := snipers.Pop()
		blockers := Between(sniper, ksq) & p.occupied
		if blockers.Count() == 1 && blockers&p.byColor[us] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}

// keepLegal filters ml in place order-preservingly, keeping legal moves.
func (p *Position) keepLegal(ml *MoveList) *MoveList {
	pinned := p.PinnedPieces()
	out := &MoveList{}
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Move(i); p.isLegal(m, pinned) {
			out.Push(m)
		}
	}
	return out
}

// isLegal decides legality of a pseudo-legal move using the pin and
// checker masks, falling back to make/unmake for en passant.
func (p *Position) isLegal(m Move, pinned Bitboard) bool {
	us := p.SideToMove
	them := us.Opponent()
	from, to := m.From(), m.To()
	ksq := p.kingSq[us]

	if from == ksq {
		if m.IsCastle() {
			// Path attacks were checked at generation time.
			return p.checkers == 0
		}
		// Step off the ray: remove the king from the occupancy first.
		return !p.attackedBy(to, them, p.occupied&^Bit(from))
	}

	if m.IsEnPassant() {
		// Capturing the pawn empties two squares at once; the masks
		// cannot see the resulting horizontal discoveries.
		return p.isLegalByMake(m)
	}

	if p.checkers != 0 {
		if p.checkers.Count() > 1 {
			return false // double check: only the king may move
		}
		checker := p.checkers.First()
		if !((Bit(checker) | Between(checker, ksq)).Has(to)) {
			return false
		}
	}

	return pinned&Bit(from) == 0 || Aligned(from, to, ksq)
}

// isLegalByMake verifies a move by applying it and inspecting the king.
func (p *Position) isLegalByMake(m Move) bool {
	us := p.SideToMove
	undo := p.MakeMove(m)
	legal := !p.IsAttacked(p.kingSq[us], p.SideToMove)
	p.UnmakeMove(m, undo)
	return legal
}

// IsLegalSlow decides legality with make/unmake only. It must agree with
// the masked path for every pseudo-legal move; the randomized generator
// tests hold the two implementations to that.
func (p *Position) IsLegalSlow(m Move) bool {
	return p.isLegalByMake(m)
}
