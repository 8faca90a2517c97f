package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/vovakirdan/roomsync-server/internal/client"
)

func main() {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	room := flag.String("room", "SMOKE", "room code to create")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *addr, *room); err != nil {
		log.Fatalf("smoke: %v", err)
	}
	log.Println("smoke test passed")
}

func run(ctx context.Context, addr, room string) error {
	host := client.New(addr)
	defer host.Close()
	guest := client.New(addr)
	defer guest.Close()

	if err := host.CreateRoom(ctx, room, "smoke-host"); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	hostState, err := waitFor(ctx, host, func(s client.State) bool { return s.Status == client.StatusJoined })
	if err != nil {
		return fmt.Errorf("host join: %w", err)
	}
	log.Printf("created room %s as %s", hostState.RoomID, hostState.LocalPlayerID)

	if err := guest.JoinRoom(ctx, room, "smoke-guest"); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if _, err := waitFor(ctx, host, func(s client.State) bool { return len(s.Players) == 2 }); err != nil {
		return fmt.Errorf("host roster: %w", err)
	}

	if err := host.LeaveRoom(ctx); err != nil {
		return fmt.Errorf("leave: %w", err)
	}
	guestState, err := waitFor(ctx, guest, func(s client.State) bool { return len(s.Players) == 1 && s.IsHost() })
	if err != nil {
		return fmt.Errorf("host failover: %w", err)
	}
	log.Printf("host moved to %s", guestState.HostID)

	return guest.LeaveRoom(ctx)
}

// waitFor blocks until cond holds for the client's state or ctx ends.
func waitFor(ctx context.Context, c *client.Client, cond func(client.State) bool) (client.State, error) {
	changed := make(chan client.State, 16)
	unsubscribe := c.Subscribe(func(s client.State) {
		select {
		case changed <- s:
		default:
		}
	})
	defer unsubscribe()

	if st := c.State(); cond(st) {
		return st, nil
	}
	for {
		select {
		case st := <-changed:
			if st.Status == client.StatusError && st.LastError != nil {
				return st, fmt.Errorf("%s: %s", st.LastError.Code, st.LastError.Message)
			}
			if cond(st) {
				return st, nil
			}
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}
