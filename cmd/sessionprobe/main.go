// Command sessionprobe tails a running interview client's dashboard
// event stream. Useful for checking turn transitions, captions, and
// connection quality from a second terminal.
//
// Usage:
//
//	go run ./cmd/sessionprobe --addr localhost:8090
//	go run ./cmd/sessionprobe --addr localhost:8090 --kinds state,latency
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxhire/go-voxhire/pkg/hub"
)

func main() {
	addr := flag.String("addr", "localhost:8090", "Dashboard address")
	kinds := flag.String("kinds", "", "Comma-separated event kinds to show (default all)")
	flag.Parse()

	filter := map[hub.EventKind]bool{}
	for _, k := range strings.Split(*kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			filter[hub.EventKind(k)] = true
		}
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/events"}
	fmt.Printf("Connecting to %s\n", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial failed:", err)
		os.Exit(1)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				fmt.Fprintln(os.Stderr, "read:", err)
				return
			}
			printEvent(msg, filter)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		// Clean close so the server drops the client immediately.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printEvent(msg []byte, filter map[hub.EventKind]bool) {
	var ev hub.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		fmt.Printf("?? %s\n", msg)
		return
	}
	if len(filter) > 0 && !filter[ev.Kind] {
		return
	}
	ts := time.UnixMilli(ev.Timestamp).Format("15:04:05.000")
	fmt.Printf("%s  %-8s %s\n", ts, ev.Kind, ev.Data)
}
