package lichess

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nobriot/schnecken-bot/internal/board"
	"github.com/nobriot/schnecken-bot/internal/book"
	"github.com/nobriot/schnecken-bot/internal/engine"
	"github.com/nobriot/schnecken-bot/internal/storage"
)

// BotConfig configures the game pool.
type BotConfig struct {
	Engine   engine.Config
	MaxGames int        // simultaneous games, default 1
	Book     *book.Book // optional opening book
	Store    *storage.Store
}

// Bot drives a pool of concurrent games: it follows the account event
// stream, accepts standard challenges and runs one engine instance per
// game.
type Bot struct {
	client *Client
	cfg    BotConfig
	acct   Account
	slots  chan struct{}
}

// NewBot builds a bot and resolves its own account.
func NewBot(ctx context.Context, client *Client, cfg BotConfig) (*Bot, error) {
	if cfg.MaxGames <= 0 {
		cfg.MaxGames = 1
	}
	acct, err := client.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving bot account: %w", err)
	}
	return &Bot{
		client: client,
		cfg:    cfg,
		acct:   acct,
		slots:  make(chan struct{}, cfg.MaxGames),
	}, nil
}

// Username returns the bot's account name.
func (b *Bot) Username() string { return b.acct.Username }

// Run follows the event stream until the context is cancelled,
// reconnecting with backoff when the stream drops. Games run on their
// own goroutines inside an errgroup.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		attempt := 0
		for {
			err := b.client.StreamEvents(ctx, func(ev Event) error {
				attempt = 0
				b.handleEvent(ctx, g, ev)
				return nil
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("lichess: event stream dropped: %v", err)
			attempt++
			if err := backoff(ctx, attempt); err != nil {
				return err
			}
		}
	})

	return g.Wait()
}

func (b *Bot) handleEvent(ctx context.Context, g *errgroup.Group, ev Event) {
	switch ev.Type {
	case "challenge":
		b.handleChallenge(ctx, ev.Challenge)
	case "gameStart":
		if ev.Game == nil {
			return
		}
		game := *ev.Game
		g.Go(func() error {
			select {
			case b.slots <- struct{}{}:
				defer func() { <-b.slots }()
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := b.playGame(ctx, game); err != nil && ctx.Err() == nil {
				log.Printf("lichess: game %s: %v", game.GameID, err)
			}
			return nil
		})
	case "gameFinish":
		// The per-game stream sees the final state; nothing to do here.
	}
}

// handleChallenge accepts standard-variant challenges with a clock while
// a game slot is free, declines everything else.
func (b *Bot) handleChallenge(ctx context.Context, ch *Challenge) {
	if ch == nil {
		return
	}
	reason := ""
	switch {
	case ch.Variant.Key != "standard":
		reason = "variant"
	case ch.TimeCtl.Type != "clock":
		reason = "timeControl"
	case len(b.slots) >= cap(b.slots):
		reason = "later"
	}
	if reason != "" {
		if err := b.client.DeclineChallenge(ctx, ch.ID, reason); err != nil {
			log.Printf("lichess: declining challenge %s: %v", ch.ID, err)
		}
		return
	}
	if err := b.client.AcceptChallenge(ctx, ch.ID); err != nil {
		log.Printf("lichess: accepting challenge %s: %v", ch.ID, err)
	}
}

// gameSession is the state of one game being played.
type gameSession struct {
	bot      *Bot
	eng      *engine.Engine
	id       string
	botColor board.Color
	startFEN string
	opponent string
	rated    bool
	played   int // moves already handed to the engine
	pos      *board.Position
	hashes   []uint64
	moves    []board.Move
}

// playGame follows one game stream to its end, thinking whenever it is
// the bot's turn.
func (b *Bot) playGame(ctx context.Context, game EventGame) error {
	log.Printf("lichess: game %s starting as %s vs %s", game.GameID, game.Color, game.Opponent.Username)

	s := &gameSession{
		bot: b,
		eng: engine.New(b.cfg.Engine),
		id:  game.GameID,
	}
	s.botColor = board.White
	if game.Color == "black" {
		s.botColor = board.Black
	}

	err := b.client.StreamGame(ctx, game.GameID, func(ev GameEvent) error {
		switch ev.Type {
		case "gameFull":
			s.opponent = ev.White.Name
			if s.botColor == board.White {
				s.opponent = ev.Black.Name
			}
			s.rated = ev.Rated
			s.startFEN = ev.InitialFEN
			if s.startFEN == "" || s.startFEN == "startpos" {
				s.startFEN = board.StartFEN
			}
			if err := s.reset(); err != nil {
				return err
			}
			if ev.State != nil {
				return s.onState(ctx, GameEvent{
					Type:  "gameState",
					Moves: ev.State.Moves, Status: ev.State.Status, Winner: ev.State.Winner,
					WTime: ev.State.WTime, BTime: ev.State.BTime,
					WInc: ev.State.WInc, BInc: ev.State.BInc,
				})
			}
			return nil
		case "gameState":
			return s.onState(ctx, ev)
		}
		return nil
	})
	if err != nil && err != errGameOver && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *gameSession) reset() error {
	pos, err := board.ParseFEN(s.startFEN)
	if err != nil {
		return fmt.Errorf("initial fen: %w", err)
	}
	s.pos = pos
	s.hashes = []uint64{pos.Hash}
	s.moves = nil
	s.played = 0
	return nil
}

// onState folds a state update into the local position and moves when it
// is the bot's turn.
func (s *gameSession) onState(ctx context.Context, ev GameEvent) error {
	tokens := strings.Fields(ev.Moves)
	for _, tok := range tokens[s.played:] {
		m, err := board.ParseUCIMove(tok, s.pos)
		if err != nil {
			return fmt.Errorf("service move %q: %w", tok, err)
		}
		s.pos.MakeMove(m)
		s.hashes = append(s.hashes, s.pos.Hash)
		s.moves = append(s.moves, m)
		s.played++
	}

	if ev.Status != "started" {
		s.finish(ev)
		return errGameOver
	}
	if s.pos.SideToMove != s.botColor {
		return nil
	}

	// Book first, engine otherwise.
	if s.bot.cfg.Book != nil {
		if m, ok := s.bot.cfg.Book.Probe(s.pos); ok {
			return s.bot.client.PlayMove(ctx, s.id, m.String())
		}
	}

	limits := engine.Limits{
		WhiteTime: time.Duration(ev.WTime) * time.Millisecond,
		BlackTime: time.Duration(ev.BTime) * time.Millisecond,
		WhiteInc:  time.Duration(ev.WInc) * time.Millisecond,
		BlackInc:  time.Duration(ev.BInc) * time.Millisecond,
	}
	s.eng.SetHistory(s.hashes[:len(s.hashes)-1])
	result := s.eng.Think(s.pos.Clone(), limits)
	if result.Best == board.NullMove {
		return fmt.Errorf("no legal move found")
	}
	log.Printf("lichess: game %s: playing %s (depth %d, score %d, %d nodes)",
		s.id, result.Best, result.Depth, result.Score, result.Nodes)
	return s.bot.client.PlayMove(ctx, s.id, result.Best.String())
}

// errGameOver ends the stream callback once the game is decided.
var errGameOver = errors.New("game over")

// finish logs the result and records the game.
func (s *gameSession) finish(ev GameEvent) {
	result := "1/2-1/2"
	switch ev.Winner {
	case "white":
		result = "1-0"
	case "black":
		result = "0-1"
	}
	log.Printf("lichess: game %s finished: %s (%s)", s.id, ev.Status, result)

	if s.bot.cfg.Store == nil {
		return
	}

	var pgn strings.Builder
	tags := map[string]string{
		"Event":  "lichess bot game",
		"Site":   "https://lichess.org/" + s.id,
		"White":  s.whiteName(),
		"Black":  s.blackName(),
		"Result": result,
	}
	if s.startFEN != board.StartFEN {
		tags["FEN"] = s.startFEN
	}
	if err := board.WritePGN(&pgn, tags, s.moves, result); err != nil {
		log.Printf("lichess: game %s: rendering pgn: %v", s.id, err)
		return
	}

	err := s.bot.cfg.Store.RecordGame(storage.GameRecord{
		ID:       s.id,
		Opponent: s.opponent,
		BotColor: s.botColor.String(),
		Rated:    s.rated,
		Result:   result,
		PGN:      pgn.String(),
		Finished: time.Now(),
	})
	if err != nil {
		log.Printf("lichess: game %s: recording: %v", s.id, err)
	}
}

func (s *gameSession) whiteName() string {
	if s.botColor == board.White {
		return s.bot.acct.Username
	}
	return s.opponent
}

func (s *gameSession) blackName() string {
	if s.botColor == board.Black {
		return s.bot.acct.Username
	}
	return s.opponent
}
