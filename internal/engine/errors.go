package engine

import "fmt"

// Rejection codes form a closed set. Preconditions are checked in a fixed
// order (existence → authorization/zone → resources → domain rule) so the
// same bad command always fails with the same code.
const (
	CodeAgentBusy         = "AGENT_BUSY"
	CodeAgentJailed       = "AGENT_JAILED"
	CodeAgentHospitalized = "AGENT_HOSPITALIZED"
	CodeWrongZone         = "WRONG_ZONE"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInsufficientItems = "INSUFFICIENT_ITEMS"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeRequirement       = "REQUIREMENT_NOT_MET"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeWorldPaused       = "WORLD_PAUSED"
	CodeNotInitialized    = "NOT_INITIALIZED"
)

// Rejection is a precondition failure: recoverable by the caller and
// guaranteed to have mutated nothing.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Code + ": " + r.Message
}

func reject(code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

func rejectBusy(until uint64) *Rejection {
	return reject(CodeAgentBusy, "agent is busy until tick %d", until)
}
