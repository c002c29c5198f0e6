package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

type fakeWorld struct {
	cats    *catalogs.Catalogs
	signals chan world.SignalRequest
	events  chan protocol.CraftMsg
}

func (f *fakeWorld) ID() string                          { return "w1" }
func (f *fakeWorld) TickRateHz() int                     { return 5 }
func (f *fakeWorld) CurrentTick() uint64                 { return 9 }
func (f *fakeWorld) Catalogs() *catalogs.Catalogs        { return f.cats }
func (f *fakeWorld) Signals() chan<- world.SignalRequest { return f.signals }
func (f *fakeWorld) Subscribe(int) (<-chan protocol.CraftMsg, func()) {
	return f.events, func() {}
}

func newFakeWorld(t *testing.T, queue int) *fakeWorld {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return &fakeWorld{
		cats:    cats,
		signals: make(chan world.SignalRequest, queue),
		events:  make(chan protocol.CraftMsg, 4),
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readInto(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	var wel protocol.WelcomeMsg
	readInto(t, conn, &wel)
	return wel
}

func TestHandshakeAndSignal(t *testing.T) {
	fw := newFakeWorld(t, 4)
	srv := httptest.NewServer(NewServer(fw, nil, Options{TuningDigest: "abc"}).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	wel := hello(t, conn)
	if wel.Type != protocol.TypeWelcome || wel.SessionID == "" || wel.WorldID != "w1" || wel.TickRateHz != 5 {
		t.Fatalf("welcome=%+v", wel)
	}
	if wel.Catalogs.RecipesDigest != fw.cats.Recipes.Digest || wel.Catalogs.TuningDigest != "abc" {
		t.Fatalf("catalogs=%+v", wel.Catalogs)
	}

	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version, ReqID: "r1", Pos: [3]int{1, 2, 3}, On: true})
	var ack protocol.AckMsg
	readInto(t, conn, &ack)
	if !ack.Accepted || ack.AckFor != "r1" || ack.ServerTick != 9 {
		t.Fatalf("ack=%+v", ack)
	}
	select {
	case req := <-fw.signals:
		if req.Pos != [3]int{1, 2, 3} || !req.On {
			t.Fatalf("req=%+v", req)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("signal not forwarded")
	}

	fw.events <- protocol.CraftMsg{Type: protocol.TypeCraft, ProtocolVersion: protocol.Version, AttemptID: "a1", OK: true}
	var craft protocol.CraftMsg
	readInto(t, conn, &craft)
	if craft.AttemptID != "a1" || !craft.OK {
		t.Fatalf("craft=%+v", craft)
	}
}

func TestSignalRejections(t *testing.T) {
	fw := newFakeWorld(t, 1)
	srv := httptest.NewServer(NewServer(fw, nil, Options{SignalPerSecond: 0.001, SignalBurst: 2}).Handler())
	defer srv.Close()
	conn := dial(t, srv)
	hello(t, conn)

	expect := func(reqID, code string) {
		t.Helper()
		var ack protocol.AckMsg
		readInto(t, conn, &ack)
		if ack.AckFor != reqID || ack.Code != code || ack.Accepted != (code == "") {
			t.Fatalf("ack=%+v want %s/%q", ack, reqID, code)
		}
	}

	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: "0.1", ReqID: "v"})
	expect("v", protocol.ErrProtoBadRequest)

	// Burst of 2: first fills the queue, second finds it full, third is limited.
	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version, ReqID: "a"})
	expect("a", "")
	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version, ReqID: "b"})
	expect("b", protocol.ErrWorldBusy)
	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version, ReqID: "c"})
	expect("c", protocol.ErrRateLimit)

	// Unknown types are ignored without a reply.
	raw, _ := json.Marshal(map[string]any{"type": "NOPE", "req_id": "x"})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatal(err)
	}
	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: "0.1", ReqID: "z"})
	expect("z", protocol.ErrProtoBadRequest)
}

func TestHandshakeRejectsNonHello(t *testing.T) {
	fw := newFakeWorld(t, 1)
	srv := httptest.NewServer(NewServer(fw, nil, Options{}).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	send(t, conn, protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
}
