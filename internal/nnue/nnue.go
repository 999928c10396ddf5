// Package nnue implements the small neural evaluator: a sparse
// piece-square input keyed on the perspective's king square, one hidden
// layer with clipped-ReLU activation and a linear head, evaluated with
// fixed-point arithmetic and an incrementally maintained accumulator.
package nnue

import "github.com/nobriot/schnecken-bot/internal/board"

// Feature space dimensions: (king square, piece, piece square) per
// perspective, kings excluded from the piece set.
const (
	numPieceKinds = 10 // P N B R Q for each color
	InputDim      = 64 * numPieceKinds * 64
	HiddenDim     = 128
	OutputDim     = 1
)

// Fixed-point scaling of the final sum into centipawns.
const (
	outputScale = 600
	outputShift = 14
)

// crelu clamps a pre-activation into [0, 127].
func crelu(x int16) int32 {
	if x < 0 {
		return 0
	}
	if x > 127 {
		return 127
	}
	return int32(x)
}

// Evaluator bundles a loaded network with its accumulator stack. It is
// not safe for concurrent use; each search worker owns one.
type Evaluator struct {
	net   *Network
	stack accumulatorStack
}

// LoadEvaluator reads a weights file and returns a ready evaluator.
func LoadEvaluator(path string) (*Evaluator, error) {
	net, err := LoadNetwork(path)
	if err != nil {
		return nil, err
	}
	e := &Evaluator{net: net}
	e.stack.init(net)
	return e, nil
}

// NewEvaluator wraps an in-memory network; used by tests.
func NewEvaluator(net *Network) *Evaluator {
	e := &Evaluator{net: net}
	e.stack.init(net)
	return e
}

// Reset refreshes the accumulator from the position; call at the search
// root.
func (e *Evaluator) Reset(pos *board.Position) {
	e.stack.reset()
	e.stack.current().refresh(pos, e.net)
}

// Push saves the accumulator state; call before MakeMove.
func (e *Evaluator) Push() { e.stack.push() }

// Pop restores the accumulator saved by the matching Push; call after
// UnmakeMove.
func (e *Evaluator) Pop() { e.stack.pop() }

// Update brings the accumulator in line with a move that has just been
// made on pos. King moves refresh from scratch; everything else applies
// the changed features incrementally, which is exactly equivalent.
func (e *Evaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	e.stack.current().update(pos, m, captured, e.net)
}

// Evaluate returns centipawns from the side to move's perspective.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	return e.net.forward(e.stack.current(), pos.SideToMove)
}

// Accumulator exposes the current accumulator for the parity tests.
func (e *Evaluator) Accumulator() *Accumulator { return e.stack.current() }
