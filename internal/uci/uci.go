// Package uci implements the Universal Chess Interface front-end over
// the engine driver.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nobriot/schnecken-bot/internal/board"
	"github.com/nobriot/schnecken-bot/internal/book"
	"github.com/nobriot/schnecken-bot/internal/engine"
)

const (
	engineName   = "schnecken-bot"
	engineAuthor = "the schnecken team"
)

// Handler runs the UCI command loop against one engine instance.
type Handler struct {
	mu  sync.Mutex // serializes writes: info lines come from the search goroutine
	out io.Writer

	cfg    engine.Config
	eng    *engine.Engine
	pos    *board.Position
	hashes []uint64

	ownBook  bool
	bookPath string
	book     *book.Book

	searchDone chan struct{}
}

// New builds a handler writing responses to out.
func New(cfg engine.Config, out io.Writer) *Handler {
	h := &Handler{
		out: out,
		cfg: cfg,
		eng: engine.New(cfg),
	}
	h.resetPosition()
	return h
}

func (h *Handler) resetPosition() {
	h.pos = board.StartingPosition()
	h.hashes = []uint64{h.pos.Hash}
}

func (h *Handler) send(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, format+"\n", args...)
}

// Run reads commands from r until "quit" or EOF. Malformed commands are
// logged and ignored, as the protocol expects.
func (h *Handler) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			h.send("id name %s", engineName)
			h.send("id author %s", engineAuthor)
			h.send("option name Hash type spin default 64 min 1 max 4096")
			h.send("option name Contempt type spin default 0 min -200 max 200")
			h.send("option name OwnBook type check default false")
			h.send("option name BookFile type string default <empty>")
			h.send("option name EvalFile type string default <empty>")
			h.send("uciok")
		case "isready":
			h.send("readyok")
		case "ucinewgame":
			h.awaitSearch()
			h.eng.NewGame()
			h.resetPosition()
		case "position":
			h.awaitSearch()
			if err := h.handlePosition(args); err != nil {
				log.Printf("uci: position: %v", err)
			}
		case "go":
			h.handleGo(args)
		case "stop":
			h.eng.Stop()
			h.awaitSearch()
		case "setoption":
			h.awaitSearch()
			h.handleSetOption(args)
		case "d":
			h.send("%s", h.pos)
		case "perft":
			h.handlePerft(args)
		case "quit":
			h.eng.Stop()
			h.awaitSearch()
			return nil
		default:
			log.Printf("uci: unknown command %q", cmd)
		}
	}
	return scanner.Err()
}

// awaitSearch blocks until the in-flight search, if any, has printed its
// bestmove.
func (h *Handler) awaitSearch() {
	if h.searchDone != nil {
		<-h.searchDone
		h.searchDone = nil
	}
}

// handlePosition parses "position [startpos|fen <fen>] [moves ...]".
func (h *Handler) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing position kind")
	}

	movesAt := len(args)
	for i, a := range args {
		if a == "moves" {
			movesAt = i
			break
		}
	}

	switch args[0] {
	case "startpos":
		h.resetPosition()
	case "fen":
		pos, err := board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return err
		}
		h.pos = pos
		h.hashes = []uint64{pos.Hash}
	default:
		return fmt.Errorf("unknown position kind %q", args[0])
	}

	for _, moveStr := range args[min(movesAt+1, len(args)):] {
		m, err := board.ParseUCIMove(moveStr, h.pos)
		if err != nil {
			return fmt.Errorf("move %q: %w", moveStr, err)
		}
		h.pos.MakeMove(m)
		h.hashes = append(h.hashes, h.pos.Hash)
	}
	return nil
}

// handleGo parses the limits and launches the search worker.
func (h *Handler) handleGo(args []string) {
	h.awaitSearch()

	limits, err := parseGoArgs(args)
	if err != nil {
		log.Printf("uci: go: %v", err)
		return
	}

	// Book hit: answer without searching.
	if h.ownBook && h.book != nil {
		if m, ok := h.book.Probe(h.pos); ok {
			h.send("bestmove %s", m)
			return
		}
	}

	h.eng.SetHistory(h.hashes[:len(h.hashes)-1])
	h.eng.OnInfo = func(info engine.Info) { h.sendInfo(info) }

	pos := h.pos.Clone()
	done := make(chan struct{})
	h.searchDone = done

	go func() {
		defer close(done)
		result := h.eng.Think(pos, limits)
		if result.Best == board.NullMove {
			h.send("bestmove 0000")
			return
		}
		if result.Ponder != board.NullMove {
			h.send("bestmove %s ponder %s", result.Best, result.Ponder)
		} else {
			h.send("bestmove %s", result.Best)
		}
	}()
}

func parseGoArgs(args []string) (engine.Limits, error) {
	var limits engine.Limits

	intArg := func(i int) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("%s needs a value", args[i])
		}
		return strconv.Atoi(args[i+1])
	}

	for i := 0; i < len(args); i++ {
		var n int
		var err error
		switch args[i] {
		case "depth":
			n, err = intArg(i)
			limits.Depth = n
			i++
		case "nodes":
			n, err = intArg(i)
			limits.Nodes = uint64(n)
			i++
		case "movetime":
			n, err = intArg(i)
			limits.MoveTime = time.Duration(n) * time.Millisecond
			i++
		case "wtime":
			n, err = intArg(i)
			limits.WhiteTime = time.Duration(n) * time.Millisecond
			i++
		case "btime":
			n, err = intArg(i)
			limits.BlackTime = time.Duration(n) * time.Millisecond
			i++
		case "winc":
			n, err = intArg(i)
			limits.WhiteInc = time.Duration(n) * time.Millisecond
			i++
		case "binc":
			n, err = intArg(i)
			limits.BlackInc = time.Duration(n) * time.Millisecond
			i++
		case "movestogo":
			n, err = intArg(i)
			limits.MovesToGo = n
			i++
		case "infinite":
			limits.Infinite = true
		case "ponder":
			// Accepted and treated as infinite until stop.
			limits.Infinite = true
		}
		if err != nil {
			return limits, err
		}
	}
	return limits, nil
}

func (h *Handler) sendInfo(info engine.Info) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d", info.Depth)

	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MateDistance(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}

	ms := info.Time.Milliseconds()
	fmt.Fprintf(&sb, " nodes %d time %d", info.Nodes, ms)
	if ms > 0 {
		fmt.Fprintf(&sb, " nps %d", info.Nodes*1000/uint64(ms))
	}
	if info.Hashfull > 0 {
		fmt.Fprintf(&sb, " hashfull %d", info.Hashfull)
	}
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	h.send("%s", sb.String())
}

func (h *Handler) handleSetOption(args []string) {
	name, value := parseOption(args)
	switch strings.ToLower(name) {
	case "hash":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			h.cfg.HashMiB = n
			h.eng = engine.New(h.cfg)
		}
	case "contempt":
		if n, err := strconv.Atoi(value); err == nil {
			h.cfg.Contempt = n
			h.eng = engine.New(h.cfg)
		}
	case "ownbook":
		h.ownBook = strings.EqualFold(value, "true")
		h.loadBook()
	case "bookfile":
		h.bookPath = value
		h.loadBook()
	case "evalfile":
		h.cfg.NNUEWeightsPath = value
		h.eng = engine.New(h.cfg)
	default:
		log.Printf("uci: unknown option %q", name)
	}
}

func (h *Handler) loadBook() {
	if !h.ownBook || h.bookPath == "" || h.book != nil {
		return
	}
	b, err := book.Load(h.bookPath)
	if err != nil {
		log.Printf("uci: opening book unavailable: %v", err)
		return
	}
	h.book = b
	log.Printf("uci: opening book loaded, %d positions", b.Size())
}

func parseOption(args []string) (name, value string) {
	var names, values []string
	target := &names
	for _, a := range args {
		switch a {
		case "name":
			target = &names
		case "value":
			target = &values
		default:
			*target = append(*target, a)
		}
	}
	return strings.Join(names, " "), strings.Join(values, " ")
}

func (h *Handler) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			depth = n
		}
	}
	start := time.Now()
	nodes := h.eng.Perft(h.pos.Clone(), depth)
	elapsed := time.Since(start)
	h.send("info string perft(%d) = %d in %v", depth, nodes, elapsed)
}
