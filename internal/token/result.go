package token

// StatusPreconditionRequired signals the transport layer that the caller must
// complete a token challenge before the protected operation proceeds.
const StatusPreconditionRequired = 428

// Payload is the transport-agnostic response body for issuance and
// verification outcomes.
type Payload struct {
	UUID    string `json:"uuid,omitempty"`
	Type    string `json:"type"`
	IsNew   *bool  `json:"is_new,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the engine's outcome. The engine never aborts request processing
// itself; the transport collaborator decides whether to short-circuit on
// Status.
type Result struct {
	// Verified is true when a presented code was accepted.
	Verified bool
	// Status is an HTTP-like status hint for the transport layer.
	Status  int
	Payload Payload
}
