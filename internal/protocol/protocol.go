package protocol

import (
	"encoding/json"
	"strings"
)

// Command names accepted over the wire.
const (
	CmdPairStart       = "pair.start"
	CmdCommandRun      = "command.run"
	CmdAgentTeleport   = "agent.teleportToPlayer"
	CmdAgentMove       = "agent.move"
	CmdAgentRotate     = "agent.rotate"
	CmdAgentDespawn    = "agent.despawn"
	CmdAgentSlotAssign = "agent.slot.assign"
	CmdAgentSlotEnable = "agent.slot.activate"
	CmdAgentPlace      = "agent.place"
)

// HelloMsg is sent once per connection, unsolicited, right after the upgrade.
// It is not correlated to any request.
type HelloMsg struct {
	Hello   string `json:"hello"`
	Pairing bool   `json:"pairing"`
}

const HelloName = "twbridge"

// Request is the inbound envelope. Every command uses a subset of the fields;
// unknown fields are ignored. Blocks is a pointer so a missing field can be
// told apart from an explicit zero.
type Request struct {
	ID        string `json:"id,omitempty"`
	Cmd       string `json:"cmd"`
	SessionID string `json:"sessionId,omitempty"`

	Player string `json:"player,omitempty"`
	Code   string `json:"code,omitempty"`

	Command string `json:"command,omitempty"`

	AgentID   string   `json:"agentId,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Blocks    *float64 `json:"blocks,omitempty"`
	BlockID   string   `json:"blockId,omitempty"`
	Amount    int      `json:"amount,omitempty"`
	Slot      int      `json:"slot,omitempty"`
}

// Response is the outbound envelope. ID echoes the request id verbatim.
type Response struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PairResult is the payload of a successful pair.start.
type PairResult struct {
	SessionID string `json:"sessionId"`
}

func DecodeRequest(b []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return r, err
	}
	r.Cmd = strings.TrimSpace(r.Cmd)
	return r, nil
}

func OK(id string, result any) Response {
	return Response{ID: id, OK: true, Result: result}
}

func Fail(id, reason string) Response {
	if reason == "" {
		reason = ReasonCommandFailed
	}
	return Response{ID: id, OK: false, Error: reason}
}
