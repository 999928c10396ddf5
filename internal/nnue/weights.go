package nnue

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/nobriot/schnecken-bot/internal/board"
)

// Weights file layout, all little-endian:
//
//	4 bytes  magic "SNCK"
//	4 bytes  version
//	u32      input dimension
//	u32      hidden dimension
//	u32      output dimension
//	int16    hidden weights, input*hidden, row-major
//	int16    hidden biases, hidden
//	int8     output weights, hidden*output
//	int32    output biases, output
//	u32      checksum: sum of all preceding bytes mod 2^32
const (
	Magic   = "SNCK"
	Version = 1
)

// Network holds the quantized weights.
type Network struct {
	Inputs  int
	Hidden  int
	Outputs int

	HiddenWeights []int16 // [input][hidden], row-major
	HiddenBias    []int16
	OutputWeights []int8 // [hidden][output], row-major
	OutputBias    []int32
}

// LoadNetwork reads and verifies a weights file: magic, version,
// dimensions and the trailing checksum all have to match.
func LoadNetwork(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nnue: %w", err)
	}

	const headerSize = 4 + 4 + 3*4
	if len(raw) < headerSize+4 {
		return nil, fmt.Errorf("nnue: file too short (%d bytes)", len(raw))
	}

	body, tail := raw[:len(raw)-4], raw[len(raw)-4:]
	var sum uint32
	for _, b := range body {
		sum += uint32(b)
	}
	if got := binary.LittleEndian.Uint32(tail); got != sum {
		return nil, fmt.Errorf("nnue: checksum mismatch: file %08x, computed %08x", got, sum)
	}

	if string(body[:4]) != Magic {
		return nil, fmt.Errorf("nnue: bad magic %q", body[:4])
	}
	if v := binary.LittleEndian.Uint32(body[4:8]); v != Version {
		return nil, fmt.Errorf("nnue: unsupported version %d", v)
	}

	net := &Network{
		Inputs:  int(binary.LittleEndian.Uint32(body[8:12])),
		Hidden:  int(binary.LittleEndian.Uint32(body[12:16])),
		Outputs: int(binary.LittleEndian.Uint32(body[16:20])),
	}
	if net.Inputs != InputDim {
		return nil, fmt.Errorf("nnue: input dimension %d, want %d", net.Inputs, InputDim)
	}
	if net.Hidden <= 0 || net.Hidden > 4096 || net.Outputs != OutputDim {
		return nil, fmt.Errorf("nnue: unsupported topology %dx%dx%d", net.Inputs, net.Hidden, net.Outputs)
	}

	want := headerSize +
		2*net.Inputs*net.Hidden + // hidden weights
		2*net.Hidden + // hidden biases
		net.Hidden*net.Outputs + // output weights
		4*net.Outputs // output biases
	if len(body) != want {
		return nil, fmt.Errorf("nnue: payload is %d bytes, want %d", len(body), want)
	}

	off := headerSize
	net.HiddenWeights = make([]int16, net.Inputs*net.Hidden)
	for i := range net.HiddenWeights {
		net.HiddenWeights[i] = int16(binary.LittleEndian.Uint16(body[off:]))
		off += 2
	}
	net.HiddenBias = make([]int16, net.Hidden)
	for i := range net.HiddenBias {
		net.HiddenBias[i] = int16(binary.LittleEndian.Uint16(body[off:]))
		off += 2
	}
	net.OutputWeights = make([]int8, net.Hidden*net.Outputs)
	for i := range net.OutputWeights {
		net.OutputWeights[i] = int8(body[off])
		off++
	}
	net.OutputBias = make([]int32, net.Outputs)
	for i := range net.OutputBias {
		net.OutputBias[i] = int32(binary.LittleEndian.Uint32(body[off:]))
		off += 4
	}

	return net, nil
}

// Save writes the network in the file format above, checksum included.
func (n *Network) Save(path string) error {
	buf := make([]byte, 0, 24+2*len(n.HiddenWeights)+2*len(n.HiddenBias)+len(n.OutputWeights)+4*len(n.OutputBias))
	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint32(buf, Version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.Inputs))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.Hidden))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.Outputs))
	for _, w := range n.HiddenWeights {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(w))
	}
	for _, b := range n.HiddenBias {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(b))
	}
	for _, w := range n.OutputWeights {
		buf = append(buf, byte(w))
	}
	for _, b := range n.OutputBias {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(b))
	}

	var sum uint32
	for _, b := range buf {
		sum += uint32(b)
	}
	buf = binary.LittleEndian.AppendUint32(buf, sum)

	return os.WriteFile(path, buf, 0o644)
}

// NewUniformNetwork builds a network with deterministic pseudo-random
// small weights; test scaffolding, not a trained evaluator.
func NewUniformNetwork(seed uint64) *Network {
	net := &Network{
		Inputs:        InputDim,
		Hidden:        HiddenDim,
		Outputs:       OutputDim,
		HiddenWeights: make([]int16, InputDim*HiddenDim),
		HiddenBias:    make([]int16, HiddenDim),
		OutputWeights: make([]int8, HiddenDim*OutputDim),
		OutputBias:    make([]int32, OutputDim),
	}
	state := seed | 1
	next := func() uint64 {
		state ^= state >> 12
		state ^= state << 25
		state ^= state >> 27
		return state * 0x2545F4914F6CDD1D
	}
	for i := range net.HiddenWeights {
		net.HiddenWeights[i] = int16(next()%7) - 3
	}
	for i := range net.HiddenBias {
		net.HiddenBias[i] = int16(next()%33) - 16
	}
	for i := range net.OutputWeights {
		net.OutputWeights[i] = int8(next()%15) - 7
	}
	for i := range net.OutputBias {
		net.OutputBias[i] = int32(next()%201) - 100
	}
	return net
}

// forward runs the head over the accumulator: clipped-ReLU on each
// perspective's pre-activations, the shared linear head applied to the
// side to move minus the opponent, dequantized to centipawns.
func (n *Network) forward(acc *Accumulator, stm board.Color) int {
	them := stm.Opponent()
	var sum int32 = n.OutputBias[0]
	for i := 0; i < n.Hidden; i++ {
		w := int32(n.OutputWeights[i])
		sum += w * (crelu(acc.halves[stm][i]) - crelu(acc.halves[them][i]))
	}
	// Division, not a shift: truncation toward zero keeps the score
	// antisymmetric in the side to move.
	return int(int64(sum) * outputScale / (1 << outputShift))
}
