package nnue

import "github.com/nobriot/schnecken-bot/internal/board"

// Accumulator holds the hidden-layer pre-activations for both
// perspectives. It must at all times equal a fresh recomputation from
// the position it tracks; the incremental update path and refresh are
// interchangeable by contract.
type Accumulator struct {
	halves [2][]int16 // indexed by perspective color
}

func newAccumulator(hidden int) Accumulator {
	return Accumulator{halves: [2][]int16{
		make([]int16, hidden),
		make([]int16, hidden),
	}}
}

// Half returns one perspective's vector; read-only for callers.
func (a *Accumulator) Half(side board.Color) []int16 { return a.halves[side] }

func (a *Accumulator) copyFrom(src *Accumulator) {
	copy(a.halves[board.White], src.halves[board.White])
	copy(a.halves[board.Black], src.halves[board.Black])
}

// refresh recomputes both perspectives from scratch: bias plus the
// weights row of every active feature.
func (a *Accumulator) refresh(pos *board.Position, net *Network) {
	var buf [32]int
	for _, side := range [2]board.Color{board.White, board.Black} {
		copy(a.halves[side], net.HiddenBias)
		for _, f := range activeFeatures(pos, side, buf[:0]) {
			a.addFeature(side, f, net)
		}
	}
}

func (a *Accumulator) addFeature(side board.Color, feature int, net *Network) {
	row := net.HiddenWeights[feature*net.Hidden : (feature+1)*net.Hidden]
	half := a.halves[side]
	for i := range row {
		half[i] += row[i]
	}
}

func (a *Accumulator) subFeature(side board.Color, feature int, net *Network) {
	row := net.HiddenWeights[feature*net.Hidden : (feature+1)*net.Hidden]
	half := a.halves[side]
	for i := range row {
		half[i] -= row[i]
	}
}

// update applies a just-made move. A king move shifts every feature of
// that perspective, so it falls back to a full refresh; all other moves
// subtract the vacated features and add the new ones.
func (a *Accumulator) update(pos *board.Position, m board.Move, captured board.Piece, net *Network) {
	if pos.PieceAt(m.To()).Type() == board.King {
		a.refresh(pos, net)
		return
	}
	for _, side := range [2]board.Color{board.White, board.Black} {
		added, removed, nAdd, nRem := moveDelta(pos, side, m, captured)
		for i := 0; i < nRem; i++ {
			a.subFeature(side, removed[i], net)
		}
		for i := 0; i < nAdd; i++ {
			a.addFeature(side, added[i], net)
		}
	}
}

// accumulatorStack mirrors the search stack so unmake is a pop.
type accumulatorStack struct {
	frames []Accumulator
	top    int
}

func (s *accumulatorStack) init(net *Network) {
	s.frames = make([]Accumulator, 192)
	for i := range s.frames {
		s.frames[i] = newAccumulator(net.Hidden)
	}
	s.top = 0
}

func (s *accumulatorStack) reset() { s.top = 0 }

func (s *accumulatorStack) current() *Accumulator { return &s.frames[s.top] }

func (s *accumulatorStack) push() {
	if s.top+1 < len(s.frames) {
		s.frames[s.top+1].copyFrom(&s.frames[s.top])
		s.top++
	}
}

func (s *accumulatorStack) pop() {
	if s.top > 0 {
		s.top--
	}
}
