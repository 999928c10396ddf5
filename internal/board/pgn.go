package board

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PGNGame is one game parsed from PGN movetext: header tags, the moves
// resolved against the game positions, and the result token.
type PGNGame struct {
	Tags   map[string]string
	Moves  []Move
	Result string
}

// Tag returns a header tag value or "".
func (g *PGNGame) Tag(name string) string { return g.Tags[name] }

// ReadPGN tokenizes the games in r. Comments, NAGs and recursive
// variations are skipped; movetext is replayed from the start position
// (or the FEN tag when present) so every returned move is legal.
func ReadPGN(r io.Reader) ([]PGNGame, error) {
	var games []PGNGame
	var cur *PGNGame
	var pos *Position
	var st movetextState
	inMovetext := false

	flush := func() {
		if cur != nil {
			games = append(games, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if inMovetext {
				flush()
				inMovetext = false
			}
			if cur == nil {
				cur = &PGNGame{Tags: map[string]string{}}
				pos = nil
				st = movetextState{}
			}
			if name, value, ok := parsePGNTag(line); ok {
				cur.Tags[name] = value
			}
			continue
		}

		// Movetext line.
		if cur == nil {
			cur = &PGNGame{Tags: map[string]string{}}
		}
		inMovetext = true
		if pos == nil {
			var err error
			pos, err = startOfGame(cur)
			if err != nil {
				return nil, err
			}
		}
		if err := replayMovetext(cur, pos, line, &st); err != nil {
			return nil, err
		}
	}
	flush()
	return games, scanner.Err()
}

func startOfGame(g *PGNGame) (*Position, error) {
	if fen, ok := g.Tags["FEN"]; ok {
		pos, err := ParseFEN(fen)
		if err != nil {
			return nil, fmt.Errorf("pgn FEN tag: %w", err)
		}
		return pos, nil
	}
	return StartingPosition(), nil
}

func parsePGNTag(line string) (name, value string, ok bool) {
	line = strings.TrimPrefix(line, "[")
	line = strings.TrimSuffix(line, "]")
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", "", false
	}
	name = line[:i]
	value = strings.Trim(strings.TrimSpace(line[i+1:]), `"`)
	return name, value, true
}

// movetextState carries comment and variation nesting across movetext
// lines: both may span line breaks.
type movetextState struct {
	depth     int // variation nesting; everything below depth 0 is skipped
	inComment bool
}

func replayMovetext(g *PGNGame, pos *Position, line string, st *movetextState) error {
	for _, field := range strings.Fields(line) {
		tok := field
		for tok != "" {
			switch {
			case st.inComment:
				if i := strings.IndexByte(tok, '}'); i >= 0 {
					st.inComment = false
					tok = tok[i+1:]
				} else {
					tok = ""
				}
			case strings.HasPrefix(tok, "{"):
				st.inComment = true
				tok = tok[1:]
			case strings.HasPrefix(tok, "("):
				st.depth++
				tok = tok[1:]
			case strings.HasPrefix(tok, ")"):
				if st.depth > 0 {
					st.depth--
				}
				tok = tok[1:]
			case st.depth > 0:
				if i := strings.IndexAny(tok, "()"); i >= 0 {
					tok = tok[i:]
				} else {
					tok = ""
				}
			default:
				word := tok
				if i := strings.IndexAny(tok, "(){}"); i >= 0 {
					word, tok = tok[:i], tok[i:]
				} else {
					tok = ""
				}
				if word == "" {
					continue
				}
				if word == "1-0" || word == "0-1" || word == "1/2-1/2" || word == "*" {
					g.Result = word
					continue
				}
				word = stripMoveNumber(word)
				if word == "" || strings.HasPrefix(word, "$") {
					continue
				}
				m, err := ParseSAN(word, pos)
				if err != nil {
					return fmt.Errorf("pgn move %q: %w", word, err)
				}
				pos.MakeMove(m)
				g.Moves = append(g.Moves, m)
			}
		}
	}
	return nil
}

// stripMoveNumber drops a leading "12." / "12..." prefix, which may be
// glued to the move token.
func stripMoveNumber(tok string) string {
	i := 0
	for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
		i++
	}
	if i == 0 {
		return tok
	}
	for i < len(tok) && tok[i] == '.' {
		i++
	}
	return tok[i:]
}

// WritePGN renders a header block and movetext for the given game. Tags
// follow the order of the seven-tag roster where present.
func WritePGN(w io.Writer, tags map[string]string, moves []Move, result string) error {
	roster := []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}
	written := map[string]bool{}
	for _, name := range roster {
		if v, ok := tags[name]; ok {
			fmt.Fprintf(w, "[%s %q]\n", name, v)
			written[name] = true
		}
	}
	for name, v := range tags {
		if !written[name] {
			fmt.Fprintf(w, "[%s %q]\n", name, v)
		}
	}
	fmt.Fprintln(w)

	pos := StartingPosition()
	if fen, ok := tags["FEN"]; ok {
		var err error
		pos, err = ParseFEN(fen)
		if err != nil {
			return err
		}
	}

	var sb strings.Builder
	for _, m := range moves {
		if pos.SideToMove == White {
			fmt.Fprintf(&sb, "%d. ", pos.FullMove)
		}
		sb.WriteString(pos.SAN(m))
		sb.WriteByte(' ')
		pos.MakeMove(m)
	}
	if result == "" {
		result = "*"
	}
	sb.WriteString(result)

	_, err := fmt.Fprintln(w, wrapMovetext(sb.String(), 80))
	return err
}

func wrapMovetext(s string, width int) string {
	var sb strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(s) {
		if lineLen > 0 && lineLen+1+len(word) > width {
			sb.WriteByte('\n')
			lineLen = 0
		} else if lineLen > 0 {
			sb.WriteByte(' ')
			lineLen++
		}
		sb.WriteString(word)
		lineLen += len(word)
	}
	return sb.String()
}
