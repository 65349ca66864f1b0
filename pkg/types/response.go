package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request. WireCode mirrors the
// numeric ledger error code used in batch charge results, so HTTP
// callers and batch consumers resolve the same failure the same way.
type APIError struct {
	Code     string `json:"code"`
	WireCode uint32 `json:"wire_code,omitempty"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
