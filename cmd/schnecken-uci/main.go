// schnecken-uci is the standalone UCI front-end to the engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nobriot/schnecken-bot/internal/engine"
	"github.com/nobriot/schnecken-bot/internal/uci"
)

func main() {
	hashMiB := flag.Int("hash", 64, "transposition table size in MiB")
	contempt := flag.Int("contempt", 0, "draw contempt in centipawns")
	weights := flag.String("nnue", "", "neural evaluator weights file")
	flag.Parse()

	if *hashMiB < 1 {
		fmt.Fprintln(os.Stderr, "hash size must be at least 1 MiB")
		os.Exit(2)
	}

	log.SetPrefix("schnecken-uci: ")
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	handler := uci.New(engine.Config{
		HashMiB:         *hashMiB,
		Contempt:        *contempt,
		NNUEWeightsPath: *weights,
	}, os.Stdout)

	if err := handler.Run(os.Stdin); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}
