package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vovakirdan/roomsync-server/internal/client"
)

const help = `commands:
  /create CODE     create a room and host it
  /join CODE       join an existing room
  /leave           leave the current room
  /set key=value   update a field of your player
  /state           print the local room state
  /quit            exit`

func main() {
	if err := run(); err != nil {
		log.Printf("ws_lobby: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	name := flag.String("name", "cli-player", "display name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*addr)
	defer c.Close()

	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	c.Subscribe(printState)

	fmt.Println(help)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handle(ctx, c, *name, strings.TrimSpace(line))
			if err != nil {
				log.Printf("error: %v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handle(ctx context.Context, c *client.Client, name, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "":
		return false, nil
	case "/create":
		return false, c.CreateRoom(ctx, arg, name)
	case "/join":
		return false, c.JoinRoom(ctx, arg, name)
	case "/leave":
		return false, c.LeaveRoom(ctx)
	case "/set":
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return false, fmt.Errorf("usage: /set key=value")
		}
		return false, c.UpdatePlayer(ctx, map[string]any{key: parseValue(raw)})
	case "/state":
		printState(c.State())
		return false, nil
	case "/quit":
		return true, nil
	default:
		fmt.Println(help)
		return false, nil
	}
}

// parseValue keeps numbers and booleans typed on the wire.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func printState(s client.State) {
	switch {
	case s.Status == client.StatusError && s.LastError != nil:
		fmt.Printf("[%s] %s: %s\n", s.Status, s.LastError.Code, s.LastError.Message)
	case s.RoomID == "":
		fmt.Printf("[%s]\n", s.Status)
	default:
		fmt.Printf("[%s] room %s (%d players)\n", s.Status, s.RoomID, len(s.Players))
		for _, p := range s.Players {
			marker := " "
			if p.IsHost {
				marker = "*"
			}
			you := ""
			if p.ID == s.LocalPlayerID {
				you = " (you)"
			}
			fmt.Printf("  %s %s%s %v\n", marker, p.Name, you, p.Extra)
		}
	}
}
