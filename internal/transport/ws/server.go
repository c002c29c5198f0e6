package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

// World is the slice of the simulation the websocket server talks to.
type World interface {
	ID() string
	TickRateHz() int
	CurrentTick() uint64
	Catalogs() *catalogs.Catalogs
	Signals() chan<- world.SignalRequest
	Subscribe(buf int) (<-chan protocol.CraftMsg, func())
}

type Options struct {
	// Per-connection SIGNAL budget.
	SignalPerSecond float64
	SignalBurst     int

	TuningDigest string
}

type Server struct {
	world World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w World, logger *log.Logger, opts Options) *Server {
	if opts.SignalPerSecond <= 0 {
		opts.SignalPerSecond = 10
	}
	if opts.SignalBurst <= 0 {
		opts.SignalBurst = 20
	}
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, maxQ := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("session %s connected from %s", sessionID, r.RemoteAddr)
		defer s.logf("session %s closed", sessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		events, unsubscribe := s.world.Subscribe(maxQ)
		defer unsubscribe()
		out := make(chan []byte, maxQ)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-out:
				case ev := <-events:
					b, _ = json.Marshal(ev)
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.opts.SignalPerSecond), s.opts.SignalBurst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeSignal {
				continue
			}
			var sig protocol.SignalMsg
			if err := json.Unmarshal(msg, &sig); err != nil {
				continue
			}
			if sig.ProtocolVersion != protocol.Version {
				s.ack(out, sig.ReqID, protocol.ErrProtoBadRequest, "bad protocol_version")
				continue
			}
			if !limiter.Allow() {
				s.ack(out, sig.ReqID, protocol.ErrRateLimit, "too many signals")
				continue
			}
			select {
			case s.world.Signals() <- world.SignalRequest{Pos: sig.Pos, On: sig.On}:
				s.ack(out, sig.ReqID, "", "")
			default:
				s.ack(out, sig.ReqID, protocol.ErrWorldBusy, "signal queue full")
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, maxQ int) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", 0
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", 0
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", 0
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", 0
	}

	maxQ = hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 256 {
		maxQ = 256
	}

	sessionID = uuid.NewString()
	if err := writeJSON(conn, s.welcome(sessionID)); err != nil {
		return "", 0
	}
	return sessionID, maxQ
}

func (s *Server) welcome(sessionID string) protocol.WelcomeMsg {
	cats := s.world.Catalogs()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         s.world.ID(),
		TickRateHz:      s.world.TickRateHz(),
		Catalogs: protocol.CatalogDigests{
			BlockPalette:  protocol.DigestRef{Digest: cats.Blocks.PaletteDigest, Count: len(cats.Blocks.Palette)},
			ItemPalette:   protocol.DigestRef{Digest: cats.Items.PaletteDigest, Count: len(cats.Items.Palette)},
			RecipesDigest: cats.Recipes.Digest,
			TuningDigest:  s.opts.TuningDigest,
		},
	}
}

// ack answers a SIGNAL that carried a req_id; others get no reply.
func (s *Server) ack(out chan<- []byte, reqID, code, message string) {
	if reqID == "" {
		return
	}
	b, _ := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          reqID,
		Accepted:        code == "",
		Code:            code,
		Message:         message,
		ServerTick:      s.world.CurrentTick(),
	})
	select {
	case out <- b:
	default:
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
