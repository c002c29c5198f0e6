package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"autocraft.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		posFlag  = flag.String("pos", "0,1,-1", "switch position x,y,z")
		interval = flag.Duration("interval", 2*time.Second, "time between switch flips")
		flips    = flag.Int("flips", 0, "stop after this many flips (0 = run until interrupted)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	pos, err := parsePos(*posFlag)
	if err != nil {
		logger.Fatalf("pos: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("read: %v", err)
				return
			}
			handleMessage(logger, msg)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	on := false
	for n := 0; *flips == 0 || n < *flips; n++ {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-ticker.C:
		}
		on = !on
		req := protocol.SignalMsg{
			Type:            protocol.TypeSignal,
			ProtocolVersion: protocol.Version,
			ReqID:           fmt.Sprintf("S%d", n+1),
			Pos:             pos,
			On:              on,
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Printf("send SIGNAL: %v", err)
			return
		}
	}
	// Leave time for the last CRAFT push.
	select {
	case <-done:
	case <-time.After(*interval):
	}
}

func handleMessage(logger *log.Logger, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return
		}
		logger.Printf("WELCOME session=%s world=%s tick_rate=%d recipes=%s", w.SessionID, w.WorldID, w.TickRateHz, short(w.Catalogs.RecipesDigest))

	case protocol.TypeCraft:
		var c protocol.CraftMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			return
		}
		if c.OK {
			logger.Printf("CRAFT tick=%d anchor=%v %s consumed=%v produced=%v", c.Tick, c.Anchor, c.RecipeID, c.Consumed, c.Produced)
		} else {
			logger.Printf("CRAFT tick=%d anchor=%v target=%s aborted code=%s", c.Tick, c.Anchor, c.Target, c.Code)
		}

	case protocol.TypeAck:
		var a protocol.AckMsg
		if err := json.Unmarshal(msg, &a); err != nil {
			return
		}
		if !a.Accepted {
			logger.Printf("ACK %s rejected code=%s msg=%s", a.AckFor, a.Code, a.Message)
		}
	}
}

func parsePos(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("bad coordinate %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
