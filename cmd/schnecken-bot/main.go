// schnecken-bot connects the engine to the online play service and
// plays games over the streaming API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nobriot/schnecken-bot/internal/book"
	"github.com/nobriot/schnecken-bot/internal/engine"
	"github.com/nobriot/schnecken-bot/internal/lichess"
	"github.com/nobriot/schnecken-bot/internal/storage"
)

func main() {
	tokenPath := flag.String("token-file", "assets/lichess_api_token.txt", "file holding the API token")
	hashMiB := flag.Int("hash", 128, "per-game transposition table size in MiB")
	contempt := flag.Int("contempt", 0, "draw contempt in centipawns")
	weights := flag.String("nnue", "", "neural evaluator weights file")
	bookPath := flag.String("book", "", "polyglot opening book")
	maxGames := flag.Int("max-games", 1, "simultaneous games")
	flag.Parse()

	log.SetPrefix("schnecken-bot: ")
	log.SetFlags(log.LstdFlags)

	token, err := lichess.LoadToken(*tokenPath)
	if err != nil {
		log.Fatalf("%v (add a token file to talk to the service)", err)
	}
	log.Printf("API token loaded")

	var openingBook *book.Book
	if *bookPath != "" {
		openingBook, err = book.Load(*bookPath)
		if err != nil {
			log.Printf("opening book unavailable: %v", err)
		} else {
			log.Printf("opening book loaded, %d positions", openingBook.Size())
		}
	}

	store, err := storage.Open()
	if err != nil {
		log.Printf("game storage unavailable: %v", err)
	} else {
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := lichess.NewClient(token)
	bot, err := lichess.NewBot(ctx, client, lichess.BotConfig{
		Engine: engine.Config{
			HashMiB:         *hashMiB,
			Contempt:        *contempt,
			NNUEWeightsPath: *weights,
		},
		MaxGames: *maxGames,
		Book:     openingBook,
		Store:    store,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("online as %s, watch at https://lichess.org/@/%s", bot.Username(), bot.Username())
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("%v", err)
	}
	log.Printf("shut down")
}
