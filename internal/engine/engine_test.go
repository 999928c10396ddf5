package engine

import (
	"testing"
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestThinkFindsMateInOne(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	result := eng.Think(pos, Limits{MoveTime: 200 * time.Millisecond})

	if got := result.Best.String(); got != "a1a8" {
		t.Errorf("best move = %s, want a1a8", got)
	}
	if !IsMateScore(result.Score) || MateDistance(result.Score) != 1 {
		t.Errorf("score = %d, want mate in 1", result.Score)
	}
}

func TestThinkFindsMateInTwo(t *testing.T) {
	// 1.Kb6 Kb8 2.Rh8#; 1.Kc7 would stalemate instead.
	eng := New(Config{HashMiB: 16})
	pos := mustFEN(t, "k7/7R/2K5/8/8/8/8/8 w - - 0 1")

	result := eng.Think(pos, Limits{Depth: 6})

	if !IsMateScore(result.Score) || MateDistance(result.Score) != 2 {
		t.Errorf("score = %d (%v), want mate in 2", result.Score, result.PV)
	}
	if got := result.Best.String(); got != "c6b6" {
		t.Errorf("best move = %s, want c6b6", got)
	}
}

func TestThinkBalancedPositionScoresNearZero(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := mustFEN(t, "rnbqkbnr/ppp2ppp/8/3pp3/3PP3/8/PPP2PPP/RNBQKBNR w KQkq - 0 3")

	result := eng.Think(pos, Limits{Depth: 6})

	if abs(result.Score) > 40 {
		t.Errorf("score = %d cp, want within +-40 in a symmetric position", result.Score)
	}
}

func TestThinkAvoidsHangingCapture(t *testing.T) {
	// White can win a clean pawn with dxe5.
	eng := New(Config{HashMiB: 16})
	pos := mustFEN(t, "rnbqkbnr/ppp2ppp/8/3pp3/3P4/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3")

	result := eng.Think(pos, Limits{Depth: 5})
	if result.Score < 30 {
		t.Errorf("score = %d cp, expected a clear pawn-up evaluation", result.Score)
	}
}

func TestThinkReportsRepetitionDraw(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := board.StartingPosition()

	// Shuffle the knights until the start position stands for the third
	// time, feeding the history the way a collaborator would.
	var hashes []uint64
	moves := []string{
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8",
	}
	for _, s := range moves {
		hashes = append(hashes, pos.Hash)
		m, err := board.ParseUCIMove(s, pos)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		pos.MakeMove(m)
	}

	eng.SetHistory(hashes)
	result := eng.Think(pos, Limits{Depth: 4})
	if result.Score != 0 {
		t.Errorf("score = %d, want 0 at the threefold repetition", result.Score)
	}
}

func TestStopCancelsThink(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := board.StartingPosition()

	done := make(chan SearchResult, 1)
	go func() {
		done <- eng.Think(pos, Limits{Infinite: true})
	}()

	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case result := <-done:
		if result.Best == board.NullMove {
			t.Errorf("cancelled search returned no move")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Think did not return after Stop")
	}
}

func TestThinkHonorsNodeLimit(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := board.StartingPosition()

	result := eng.Think(pos, Limits{Nodes: 5000, Depth: 64})
	if result.Nodes > 5000+pollInterval {
		t.Errorf("searched %d nodes, limit was 5000", result.Nodes)
	}
	if result.Best == board.NullMove {
		t.Errorf("node-limited search returned no move")
	}
}

func TestReadyAndNewGame(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	if !eng.Ready() {
		t.Errorf("fresh engine not ready")
	}
	eng.Think(board.StartingPosition(), Limits{Depth: 3})
	if !eng.Ready() {
		t.Errorf("engine not ready after Think returned")
	}
	eng.NewGame()
	result := eng.Think(board.StartingPosition(), Limits{Depth: 3})
	if result.Best == board.NullMove {
		t.Errorf("no move after NewGame")
	}
}

func TestThinkStalematePosition(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	pos := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	result := eng.Think(pos, Limits{Depth: 4})
	if result.Best != board.NullMove {
		t.Errorf("stalemated side got move %s, want none", result.Best)
	}
}

func TestPVStartsWithBestMove(t *testing.T) {
	eng := New(Config{HashMiB: 16})
	result := eng.Think(board.StartingPosition(), Limits{Depth: 6})

	if len(result.PV) == 0 {
		t.Fatalf("empty principal variation")
	}
	if result.PV[0] != result.Best {
		t.Errorf("pv[0] = %s, best = %s", result.PV[0], result.Best)
	}

	// The PV must replay as a legal sequence.
	pos := board.StartingPosition()
	for _, m := range result.PV {
		if !pos.LegalMoves().Contains(m) {
			t.Fatalf("pv move %s illegal after %v", m, result.PV)
		}
		pos.MakeMove(m)
	}
}
