package ws

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"twbridge.dev/internal/protocol"
	"twbridge.dev/internal/sim/world"
)

// dispatch parses and routes one inbound frame. Returns false when the
// connection must stop reading (it has been closed).
func (s *Server) dispatch(c *client, msg []byte) bool {
	req, err := protocol.DecodeRequest(msg)
	if err != nil {
		c.close(protocol.CloseInternal, "bad message")
		return false
	}
	if req.ID == "" {
		// Synthesize an id so the response can still be correlated.
		req.ID = uuid.NewString()
	}

	if req.Cmd == protocol.CmdPairStart {
		return s.handlePairStart(c, req)
	}

	// Every other command needs an authorized session when pairing is on.
	if s.opts.RequirePairing && !s.sessions.Validate(c.id, req.SessionID) {
		c.reply(protocol.Fail(req.ID, protocol.ReasonNotPaired))
		c.close(protocol.ClosePolicyViolation, "pairing required")
		return false
	}

	switch req.Cmd {
	case protocol.CmdCommandRun:
		s.handleCommandRun(c, req)
	case protocol.CmdAgentTeleport:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentTeleportToPlayer(owner, req.AgentID)
		})
	case protocol.CmdAgentMove:
		s.handleAgentMove(c, req)
	case protocol.CmdAgentRotate:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentRotate(owner, req.AgentID, req.Direction)
		})
	case protocol.CmdAgentDespawn:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentDespawn(owner, req.AgentID)
		})
	case protocol.CmdAgentSlotAssign:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentSlotAssign(owner, req.AgentID, req.BlockID, req.Amount, req.Slot)
		})
	case protocol.CmdAgentSlotEnable:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentSlotActivate(owner, req.AgentID, req.Slot)
		})
	case protocol.CmdAgentPlace:
		s.handleAgent(c, req, func(owner string) error {
			return s.world.AgentPlace(owner, req.AgentID, req.Direction)
		})
	default:
		c.reply(protocol.Fail(req.ID, "unknown cmd: "+req.Cmd))
	}
	return true
}

// handlePairStart runs the pairing handshake. Returns false when the
// connection was closed.
func (s *Server) handlePairStart(c *client, req protocol.Request) bool {
	if s.sessions.SessionFor(c.id) != nil {
		c.reply(protocol.Fail(req.ID, protocol.ReasonSessionExists))
		return true
	}
	requested := strings.TrimSpace(req.Player)
	if requested == "" {
		c.reply(protocol.Fail(req.ID, protocol.ReasonPlayerRequired))
		c.close(protocol.ClosePolicyViolation, "player required")
		return false
	}
	resolved := s.world.ResolveOnlinePlayerName(requested)
	if resolved == "" {
		c.reply(protocol.Fail(req.ID, protocol.ReasonPlayerNotOnline))
		c.close(protocol.ClosePolicyViolation, "player not online")
		return false
	}
	if s.opts.RequirePairing {
		// Single-use: the code is validated and cleared in one step, so a
		// racing second attempt sees no active code.
		if !s.pairing.Consume(req.Code) {
			c.reply(protocol.Fail(req.ID, protocol.ReasonInvalidCode))
			c.close(protocol.ClosePolicyViolation, "invalid or expired code")
			return false
		}
	}
	sess, ok := s.sessions.Bind(resolved, c.id)
	if !ok {
		c.reply(protocol.Fail(req.ID, protocol.ReasonPlayerBound))
		c.close(protocol.ClosePolicyViolation, "player already bound")
		return false
	}
	s.debugf("session established player=%s", resolved)
	s.world.Audit(world.AuditEntry{Actor: resolved, Action: "SESSION_OPEN", Detail: sess.ID})
	c.reply(protocol.OK(req.ID, protocol.PairResult{SessionID: sess.ID}))
	return true
}

func (s *Server) handleCommandRun(c *client, req protocol.Request) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		c.reply(protocol.Fail(req.ID, protocol.ReasonCommandMissing))
		return
	}
	s.debugf("command.run: %s", command)
	s.world.Exec(func() {
		if s.world.DispatchCommand(command) {
			c.reply(protocol.OK(req.ID, nil))
		} else {
			c.reply(protocol.Fail(req.ID, protocol.ReasonCommandFailed))
		}
	})
}

// handleAgent runs the shared agent-command plumbing: field checks and the
// owner identity, then the mutation on the world loop with the correlated
// reply produced from its result.
func (s *Server) handleAgent(c *client, req protocol.Request, mutate func(owner string) error) {
	if strings.TrimSpace(req.AgentID) == "" {
		c.reply(protocol.Fail(req.ID, protocol.ReasonAgentIDRequired))
		return
	}
	owner := s.boundPlayer(c)
	if owner == "" {
		c.reply(protocol.Fail(req.ID, protocol.ReasonPlayerNotBound))
		return
	}
	s.debugf("%s id=%s player=%s", req.Cmd, req.AgentID, owner)
	s.world.Exec(func() {
		if err := mutate(owner); err != nil {
			c.reply(protocol.Fail(req.ID, err.Error()))
			return
		}
		c.reply(protocol.OK(req.ID, nil))
	})
}

func (s *Server) handleAgentMove(c *client, req protocol.Request) {
	if req.Blocks == nil {
		// Field absent: treated as zero, rejected by the distance floor.
		zero := 0.0
		req.Blocks = &zero
	}
	blocks := *req.Blocks
	if math.IsNaN(blocks) || math.IsInf(blocks, 0) {
		c.reply(protocol.Fail(req.ID, protocol.ReasonBlocksNotNumber))
		return
	}
	s.handleAgent(c, req, func(owner string) error {
		return s.world.AgentMove(owner, req.AgentID, req.Direction, blocks)
	})
}

// boundPlayer returns the identity bound to the connection, or "". When
// pairing is disabled the session is still the identity record, created by a
// code-less pair.start.
func (s *Server) boundPlayer(c *client) string {
	sess := s.sessions.SessionFor(c.id)
	if sess == nil {
		return ""
	}
	return sess.Player
}
