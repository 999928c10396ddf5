// Package book probes polyglot-format opening books.
package book

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/nobriot/schnecken-bot/internal/board"
)

// Entry is one weighted book move for a position.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book maps position keys to their candidate moves.
type Book struct {
	entries map[uint64][]Entry
	rng     *rand.Rand
}

// Load reads a polyglot book file.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses polyglot records from r: 8-byte key, 2-byte move, 2-byte
// weight, 4-byte learn field, all big-endian.
func Read(r io.Reader) (*Book, error) {
	b := &Book{
		entries: make(map[uint64][]Entry),
		rng:     rand.New(rand.NewSource(0x5EED)),
	}

	var rec [16]byte
	for {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("book: truncated record: %w", err)
		}
		key := binary.BigEndian.Uint64(rec[0:8])
		raw := binary.BigEndian.Uint16(rec[8:10])
		weight := binary.BigEndian.Uint16(rec[10:12])
		b.entries[key] = append(b.entries[key], Entry{Move: decodeMove(raw), Weight: weight})
	}
	return b, nil
}

// decodeMove unpacks the polyglot move encoding: files and ranks in
// 3-bit groups, to-square lowest.
func decodeMove(raw uint16) board.Move {
	to := board.SquareOf(int(raw&7), int(raw>>3&7))
	from := board.SquareOf(int(raw>>6&7), int(raw>>9&7))
	promo := int(raw >> 12 & 7)

	// Polyglot encodes castling as king takes own rook.
	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 {
		types := [5]board.PieceType{board.NoPieceType, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, types[promo], false)
	}
	return board.NewMove(from, to, board.FlagQuiet)
}

// Probe returns a legal book move for the position, weight-proportionally
// sampled, or ok=false when the position is out of book.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NullMove, false
	}
	entries := b.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return board.NullMove, false
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	total := 0
	for _, e := range sorted {
		total += int(e.Weight)
	}

	pick := 0
	if total > 0 {
		r := b.rng.Intn(total)
		acc := 0
		for i, e := range sorted {
			acc += int(e.Weight)
			if r < acc {
				pick = i
				break
			}
		}
	}

	// Resolve against the legal move set so the flag nibble is right;
	// skip book moves that are not legal here (corrupt or stale entry).
	for i := 0; i < len(sorted); i++ {
		idx := (pick + i) % len(sorted)
		if m, ok := matchLegal(pos, sorted[idx].Move); ok {
			return m, true
		}
	}
	return board.NullMove, false
}

func matchLegal(pos *board.Position, m board.Move) (board.Move, bool) {
	legal := pos.LegalMoves()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Move(i)
		if lm.From() != m.From() || lm.To() != m.To() {
			continue
		}
		if m.IsPromotion() != lm.IsPromotion() {
			continue
		}
		if m.IsPromotion() && m.Promotion() != lm.Promotion() {
			continue
		}
		return lm, true
	}
	return board.NullMove, false
}

// Size returns the number of book positions.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
