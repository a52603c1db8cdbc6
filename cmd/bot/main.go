// bot is a scripted protocol client: it pairs, summons an agent and walks
// it around. Useful for manual end-to-end checks against a running bridge.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"twbridge.dev/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://127.0.0.1:8787/v1/ws", "ws url")
		player = flag.String("player", "Steve", "player identity to bind")
		code   = flag.String("code", "", "pairing code (empty when pairing is disabled)")
		agent  = flag.String("agent", "bot1", "agent id to drive")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// First frame is the unsolicited hello.
	var hello protocol.HelloMsg
	if err := conn.ReadJSON(&hello); err != nil {
		logger.Fatalf("read hello: %v", err)
	}
	logger.Printf("hello=%s pairing=%v", hello.Hello, hello.Pairing)

	nextID := 0
	request := func(req protocol.Request) protocol.Response {
		nextID++
		req.ID = fmt.Sprintf("bot-%d", nextID)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("write %s: %v", req.Cmd, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read %s response: %v", req.Cmd, err)
		}
		var resp protocol.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			logger.Fatalf("decode %s response: %v", req.Cmd, err)
		}
		if resp.ID != req.ID {
			logger.Fatalf("correlation mismatch: sent %s got %s", req.ID, resp.ID)
		}
		logger.Printf("%s -> ok=%v err=%q", req.Cmd, resp.OK, resp.Error)
		return resp
	}

	pair := request(protocol.Request{Cmd: protocol.CmdPairStart, Player: *player, Code: *code})
	if !pair.OK {
		logger.Fatalf("pairing failed: %s", pair.Error)
	}
	session := ""
	if m, ok := pair.Result.(map[string]any); ok {
		session, _ = m["sessionId"].(string)
	}

	withSession := func(req protocol.Request) protocol.Request {
		req.SessionID = session
		return req
	}

	request(withSession(protocol.Request{Cmd: protocol.CmdAgentTeleport, AgentID: *agent}))
	blocks := 3.0
	for i := 0; i < 4; i++ {
		request(withSession(protocol.Request{Cmd: protocol.CmdAgentMove, AgentID: *agent, Direction: "forward", Blocks: &blocks}))
		request(withSession(protocol.Request{Cmd: protocol.CmdAgentRotate, AgentID: *agent, Direction: "right"}))
	}
	request(withSession(protocol.Request{Cmd: protocol.CmdAgentSlotAssign, AgentID: *agent, BlockID: "stone", Amount: 4, Slot: 1}))
	request(withSession(protocol.Request{Cmd: protocol.CmdAgentSlotEnable, AgentID: *agent, Slot: 1}))
	request(withSession(protocol.Request{Cmd: protocol.CmdAgentPlace, AgentID: *agent, Direction: "down"}))
	request(withSession(protocol.Request{Cmd: protocol.CmdAgentDespawn, AgentID: *agent}))
}
