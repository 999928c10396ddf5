package lichess

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nobriot/schnecken-bot/internal/engine"
)

func engineTestConfig() engine.Config {
	return engine.Config{HashMiB: 8}
}

func TestLoadToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.txt")
	if err := os.WriteFile(path, []byte("  lip_sometoken\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	token, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != "lip_sometoken" {
		t.Errorf("token = %q", token)
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(empty); err == nil {
		t.Errorf("accepted an empty token file")
	}
	if _, err := LoadToken(filepath.Join(dir, "missing.txt")); err == nil {
		t.Errorf("accepted a missing token file")
	}
}

func TestAccountRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"id":"schnecken_bot","username":"schnecken_bot","title":"BOT"}`)
	}))
	defer srv.Close()

	c := NewClientAt("tok", srv.URL)
	acct, err := c.Account(context.Background())
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Username != "schnecken_bot" || acct.Title != "BOT" {
		t.Errorf("account = %+v", acct)
	}
}

func TestStreamEventsNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/event" {
			http.NotFound(w, r)
			return
		}
		// Two records separated by a keep-alive blank line.
		fmt.Fprintln(w, `{"type":"challenge","challenge":{"id":"ch1","variant":{"key":"standard"},"timeControl":{"type":"clock"}}}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, `{"type":"gameStart","game":{"gameId":"g1","color":"white","isMyTurn":true}}`)
	}))
	defer srv.Close()

	c := NewClientAt("tok", srv.URL)
	var events []Event
	err := c.StreamEvents(context.Background(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "challenge" || events[0].Challenge.ID != "ch1" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != "gameStart" || events[1].Game.GameID != "g1" {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClientAt("bad", srv.URL)
	err := c.StreamEvents(context.Background(), func(Event) error { return nil })
	if err == nil {
		t.Errorf("stream with 401 did not error")
	}
}

// TestBotPlaysAGame wires a fake service end to end: the bot receives a
// gameFull where it is to move and must post a move in UCI coordinate
// form (four or five characters).
func TestBotPlaysAGame(t *testing.T) {
	var mu sync.Mutex
	var playedMove string
	moveDone := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"bot","username":"bot"}`)
	})
	mux.HandleFunc("/stream/event", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"gameStart","game":{"gameId":"g1","color":"white","opponent":{"username":"alice"}}}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/bot/game/stream/g1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"gameFull","id":"g1","rated":false,`+
			`"white":{"name":"bot"},"black":{"name":"alice"},`+
			`"state":{"moves":"","wtime":60000,"btime":60000,"winc":1000,"binc":1000,"status":"started"}}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/bot/game/g1/move/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if playedMove == "" {
			playedMove = filepath.Base(r.URL.Path)
			close(moveDone)
		}
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client := NewClientAt("tok", srv.URL)
	bot, err := NewBot(ctx, client, BotConfig{
		Engine: engineTestConfig(),
	})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}

	runDone := make(chan struct{})
	go func() {
		bot.Run(ctx)
		close(runDone)
	}()

	select {
	case <-moveDone:
	case <-ctx.Done():
		t.Fatalf("bot never played a move")
	}

	mu.Lock()
	move := playedMove
	mu.Unlock()
	if len(move) < 4 || len(move) > 5 {
		t.Errorf("played move %q malformed", move)
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Errorf("bot did not shut down on cancel")
	}
}
