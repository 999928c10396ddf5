package nnue

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/nobriot/schnecken-bot/internal/board"
)

// TestAccumulatorIncrementalParity plays random games with push/update/
// pop mirroring make/unmake and checks the accumulator against a fresh
// recomputation at every step, bit-exact.
func TestAccumulatorIncrementalParity(t *testing.T) {
	net := NewUniformNetwork(11)
	ev := NewEvaluator(net)
	rng := rand.New(rand.NewSource(12))

	for game := 0; game < 10; game++ {
		pos := board.StartingPosition()
		ev.Reset(pos)

		var madeMoves []board.Move
		var undos []board.Undo

		for ply := 0; ply < 80; ply++ {
			moves := pos.LegalMoves()
			if moves.Len() == 0 {
				break
			}
			m := moves.Move(rng.Intn(moves.Len()))

			ev.Push()
			undo := pos.MakeMove(m)
			ev.Update(pos, m, undo.Captured)
			madeMoves = append(madeMoves, m)
			undos = append(undos, undo)

			requireParity(t, ev, pos)

			// Occasionally unwind a few plies and check again.
			if rng.Intn(4) == 0 && len(madeMoves) > 0 {
				n := 1 + rng.Intn(len(madeMoves))
				for i := 0; i < n; i++ {
					last := len(madeMoves) - 1
					pos.UnmakeMove(madeMoves[last], undos[last])
					ev.Pop()
					madeMoves = madeMoves[:last]
					undos = undos[:last]
				}
				requireParity(t, ev, pos)
			}
		}
	}
}

func requireParity(t *testing.T, ev *Evaluator, pos *board.Position) {
	t.Helper()
	fresh := newAccumulator(ev.net.Hidden)
	fresh.refresh(pos, ev.net)

	got := ev.Accumulator()
	for _, side := range [2]board.Color{board.White, board.Black} {
		for i := range fresh.halves[side] {
			if got.halves[side][i] != fresh.halves[side][i] {
				t.Fatalf("accumulator diverged at %s: %v half, slot %d: %d != %d",
					pos.FEN(), side, i, got.halves[side][i], fresh.halves[side][i])
			}
		}
	}
}

func TestEvaluateMatchesForwardOnFreshAccumulator(t *testing.T) {
	net := NewUniformNetwork(21)
	ev := NewEvaluator(net)
	pos := board.StartingPosition()
	ev.Reset(pos)

	a := ev.Evaluate(pos)
	ev.Reset(pos)
	b := ev.Evaluate(pos)
	if a != b {
		t.Errorf("evaluation not deterministic: %d vs %d", a, b)
	}
}

func TestWeightsFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.bin")

	net := NewUniformNetwork(31)
	if err := net.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork: %v", err)
	}
	if loaded.Inputs != net.Inputs || loaded.Hidden != net.Hidden || loaded.Outputs != net.Outputs {
		t.Fatalf("dimensions changed: %dx%dx%d", loaded.Inputs, loaded.Hidden, loaded.Outputs)
	}
	for i := range net.HiddenWeights {
		if net.HiddenWeights[i] != loaded.HiddenWeights[i] {
			t.Fatalf("hidden weight %d changed", i)
		}
	}
	for i := range net.OutputWeights {
		if net.OutputWeights[i] != loaded.OutputWeights[i] {
			t.Fatalf("output weight %d changed", i)
		}
	}
	if loaded.OutputBias[0] != net.OutputBias[0] {
		t.Fatalf("output bias changed")
	}
}

func TestLoadNetworkRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.bin")

	net := NewUniformNetwork(41)
	if err := net.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	good, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	write := func(b []byte) string {
		p := filepath.Join(dir, "bad.bin")
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[0] = 'X'
		// Keep the checksum matching so only the magic is wrong.
		var sum uint32
		for _, c := range bad[:len(bad)-4] {
			sum += uint32(c)
		}
		binary.LittleEndian.PutUint32(bad[len(bad)-4:], sum)
		if _, err := LoadNetwork(write(bad)); err == nil {
			t.Errorf("accepted bad magic")
		}
	})

	t.Run("bad checksum", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1] ^= 0xFF
		if _, err := LoadNetwork(write(bad)); err == nil {
			t.Errorf("accepted bad checksum")
		}
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[100] ^= 0x01
		if _, err := LoadNetwork(write(bad)); err == nil {
			t.Errorf("accepted corrupted payload")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := LoadNetwork(write(good[:len(good)/2])); err == nil {
			t.Errorf("accepted truncated file")
		}
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		binary.LittleEndian.PutUint32(bad[8:12], 1234)
		var sum uint32
		for _, c := range bad[:len(bad)-4] {
			sum += uint32(c)
		}
		binary.LittleEndian.PutUint32(bad[len(bad)-4:], sum)
		if _, err := LoadNetwork(write(bad)); err == nil {
			t.Errorf("accepted wrong input dimension")
		}
	})
}

// TestForwardSymmetry: with the side to move and perspectives swapped,
// the head sees the halves exchanged, so the score flips around the
// bias term.
func TestForwardSymmetry(t *testing.T) {
	net := NewUniformNetwork(51)
	for i := range net.OutputBias {
		net.OutputBias[i] = 0
	}
	ev := NewEvaluator(net)

	pos := board.StartingPosition()
	ev.Reset(pos)
	white := ev.Evaluate(pos)

	null := pos.MakeNullMove()
	black := ev.Evaluate(pos)
	pos.UnmakeNullMove(null)

	if white != -black {
		t.Errorf("forward not antisymmetric in the side to move: %d vs %d", white, black)
	}
}
