package board

import "testing"

// perft counts the leaves of the legal move tree; the standard movegen
// correctness check.
func perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Move(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// The canonical perft suite: start position, Kiwipete and positions 3-6
// with the published node counts.
var perftSuite = []struct {
	name   string
	fen    string
	counts []uint64 // counts[d-1] = perft(d)
}{
	{
		name:   "startpos",
		fen:    StartFEN,
		counts: []uint64{20, 400, 8902, 197281, 4865609},
	},
	{
		name:   "kiwipete",
		fen:    "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		counts: []uint64{48, 2039, 97862, 4085603},
	},
	{
		name:   "position3",
		fen:    "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		counts: []uint64{14, 191, 2812, 43238, 674624},
	},
	{
		name:   "position4",
		fen:    "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		counts: []uint64{6, 264, 9467, 422333},
	},
	{
		name:   "position5",
		fen:    "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		counts: []uint64{44, 1486, 62379, 2103487},
	},
	{
		name:   "position6",
		fen:    "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		counts: []uint64{46, 2079, 89890, 3894594},
	},
}

func TestPerftSuite(t *testing.T) {
	for _, tc := range perftSuite {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			maxDepth := len(tc.counts)
			if testing.Short() && maxDepth > 3 {
				maxDepth = 3
			}
			for d := 1; d <= maxDepth; d++ {
				if got := perft(pos, d); got != tc.counts[d-1] {
					t.Fatalf("perft(%d) = %d, want %d", d, got, tc.counts[d-1])
				}
			}
		})
	}
}

// TestPerftEnPassantDiscovery covers the en passant capture that would
// expose the king along the shared rank; it must not be generated.
func TestPerftEnPassantDiscovery(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	moves := pos.LegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if moves.Move(i).IsEnPassant() {
			t.Errorf("en passant %v should be illegal (horizontal discovery)", moves.Move(i))
		}
	}

	for d, want := range []uint64{6, 94} {
		if got := perft(pos, d+1); got != want {
			t.Errorf("perft(%d) = %d, want %d", d+1, got, want)
		}
	}
}

func TestPerftDoubleCheckKingMovesOnly(t *testing.T) {
	// Rook and bishop give double check; only king moves may come out.
	pos, err := ParseFEN("4k3/8/8/8/7b/8/8/4K2r w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	moves := pos.LegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if m := moves.Move(i); m.From() != pos.KingSquare(White) {
			t.Errorf("non-king move %v generated in double check", m)
		}
	}
}

func BenchmarkPerftStartpos(b *testing.B) {
	pos := StartingPosition()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		perft(pos, 4)
	}
}
