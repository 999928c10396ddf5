package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/nobriot/schnecken-bot/internal/board"
)

// record builds one polyglot record for a position key.
func record(key uint64, from, to board.Square, weight uint16) []byte {
	var rec [16]byte
	binary.BigEndian.PutUint64(rec[0:8], key)
	raw := uint16(to.File()) | uint16(to.Rank())<<3 |
		uint16(from.File())<<6 | uint16(from.Rank())<<9
	binary.BigEndian.PutUint16(rec[8:10], raw)
	binary.BigEndian.PutUint16(rec[10:12], weight)
	return rec[:]
}

func TestBookProbe(t *testing.T) {
	pos := board.StartingPosition()
	key := pos.PolyglotHash()

	var buf bytes.Buffer
	buf.Write(record(key, board.E2, board.E4, 100))
	buf.Write(record(key, board.D2, board.D4, 50))

	b, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b.Size() != 1 {
		t.Fatalf("Size = %d, want 1", b.Size())
	}

	for i := 0; i < 20; i++ {
		m, ok := b.Probe(pos)
		if !ok {
			t.Fatalf("probe missed a booked position")
		}
		if s := m.String(); s != "e2e4" && s != "d2d4" {
			t.Fatalf("probe returned %s, want e2e4 or d2d4", s)
		}
		// Book moves must come back with proper flags.
		if s := m.String(); s == "e2e4" && !m.IsDoublePush() {
			t.Fatalf("book move e2e4 lost its double-push flag")
		}
	}
}

func TestBookProbeOutOfBook(t *testing.T) {
	pos := board.StartingPosition()
	var buf bytes.Buffer
	buf.Write(record(0x1234, board.E2, board.E4, 1))

	b, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Probe(pos); ok {
		t.Errorf("probe hit for an unbooked position")
	}
}

func TestBookSkipsIllegalEntries(t *testing.T) {
	pos := board.StartingPosition()
	key := pos.PolyglotHash()

	var buf bytes.Buffer
	buf.Write(record(key, board.E2, board.E5, 1000)) // not a legal move
	buf.Write(record(key, board.G1, board.F3, 1))

	b, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := b.Probe(pos)
	if !ok {
		t.Fatalf("probe gave up although a legal entry exists")
	}
	if m.String() != "g1f3" {
		t.Errorf("probe returned %s, want the legal g1f3", m)
	}
}

func TestBookCastlingEncoding(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	// Polyglot encodes white kingside castling as e1 takes h1.
	buf.Write(record(pos.PolyglotHash(), board.E1, board.H1, 10))

	b, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := b.Probe(pos)
	if !ok {
		t.Fatalf("castling entry not found")
	}
	if m.String() != "e1g1" || !m.IsCastle() {
		t.Errorf("castling decoded as %s (castle=%v), want e1g1", m, m.IsCastle())
	}
}

func TestReadRejectsTruncated(t *testing.T) {
	if _, err := Read(bytes.NewReader(make([]byte, 10))); err == nil {
		t.Errorf("accepted a truncated book")
	}
}
