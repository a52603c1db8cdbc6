package protocol

// Failure reasons carried in the error field of a Response. The exact strings
// are part of the wire contract; clients match on them.
const (
	// Pairing / session.
	ReasonSessionExists   = "session already established"
	ReasonPlayerRequired  = "player required"
	ReasonPlayerNotOnline = "player not online"
	ReasonPlayerBound     = "player already bound"
	ReasonInvalidCode     = "invalid or expired code"
	ReasonNotPaired       = "not paired"
	ReasonPlayerNotBound  = "player not bound"

	// Command dispatch.
	ReasonCommandMissing = "command missing"
	ReasonCommandFailed  = "command failed"

	// Agent lookup / ownership.
	ReasonAgentIDRequired = "agentId required"
	ReasonAgentNotFound   = "agent not found"
	ReasonAgentOwned      = "agent owned by another player"
	ReasonPlayerNotFound  = "player not found"
	ReasonSpawnFailed     = "spawn failed"

	// Movement / rotation.
	ReasonInvalidDirection    = "invalid direction"
	ReasonBlocksNotNumber     = "blocks must be a number"
	ReasonBlocksTooSmall      = "blocks must be greater than 0"
	ReasonUnresolvedDirection = "unable to resolve direction"
	ReasonInvalidTarget       = "invalid target"

	// Inventory / placement.
	ReasonSlotRange      = "slot must be 1-27"
	ReasonAmountRange    = "amount must be 1-64"
	ReasonBlockRequired  = "block required"
	ReasonInvalidBlock   = "invalid block"
	ReasonNoActiveSlot   = "no active slot"
	ReasonSlotNoBlock    = "active slot has no block"
	ReasonTargetNotEmpty = "target not empty"
)

var knownReasons = map[string]struct{}{
	ReasonSessionExists:       {},
	ReasonPlayerRequired:      {},
	ReasonPlayerNotOnline:     {},
	ReasonPlayerBound:         {},
	ReasonInvalidCode:         {},
	ReasonNotPaired:           {},
	ReasonPlayerNotBound:      {},
	ReasonCommandMissing:      {},
	ReasonCommandFailed:       {},
	ReasonAgentIDRequired:     {},
	ReasonAgentNotFound:       {},
	ReasonAgentOwned:          {},
	ReasonPlayerNotFound:      {},
	ReasonSpawnFailed:         {},
	ReasonInvalidDirection:    {},
	ReasonBlocksNotNumber:     {},
	ReasonBlocksTooSmall:      {},
	ReasonUnresolvedDirection: {},
	ReasonInvalidTarget:       {},
	ReasonSlotRange:           {},
	ReasonAmountRange:         {},
	ReasonBlockRequired:       {},
	ReasonInvalidBlock:        {},
	ReasonNoActiveSlot:        {},
	ReasonSlotNoBlock:         {},
	ReasonTargetNotEmpty:      {},
}

func IsKnownReason(reason string) bool {
	_, ok := knownReasons[reason]
	return ok
}

// WebSocket close codes used by the bridge. Matches RFC 6455 registry values.
const (
	ClosePolicyViolation = 1008 // bad origin, pairing failures, binding conflicts
	CloseTooLarge        = 1009 // frame over the configured byte ceiling
	CloseInternal        = 1011 // rate limit exceeded or malformed frame
)
