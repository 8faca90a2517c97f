package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, members int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil, nil)
	go hub.Run(ctx)

	host := NewClient("host", 64)
	hub.RegisterClient(host)
	host.Commands <- &Command{Kind: CommandCreateRoom, RoomID: "BENCH"}

	others := make([]*Client, 0, members-1)
	for i := 1; i < members; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), 64)
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinRoom, RoomID: "BENCH"}
		others = append(others, c)
	}

	// Drain events for everyone but the host to avoid dropped deliveries.
	for _, c := range others {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	// Wait until the last join reached the host.
	for {
		ev := <-host.Events
		if ev.Kind == EventRoomUpdate && len(ev.Room.Players) == members {
			break
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		host.Commands <- &Command{
			Kind:  CommandUpdatePlayer,
			Patch: map[string]any{"tick": i},
		}
		<-host.Events
	}
}

func BenchmarkRoomBroadcast_2(b *testing.B) { benchmarkRoomBroadcast(b, 2) }
func BenchmarkRoomBroadcast_4(b *testing.B) { benchmarkRoomBroadcast(b, MaxPlayers) }

func BenchmarkRegistryJoinLeave(b *testing.B) {
	r := NewRegistry()
	if _, err := r.CreateRoom("BENCH", "host"); err != nil {
		b.Fatal(err)
	}
	if _, _, err := r.JoinRoom("BENCH", "host", PlayerInput{Name: "host"}); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := r.JoinRoom("BENCH", "guest", PlayerInput{Name: "guest"}); err != nil {
			b.Fatal(err)
		}
		r.LeaveRoom("BENCH", "guest")
	}
}
