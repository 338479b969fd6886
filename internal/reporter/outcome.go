package reporter

// Outcome is the result of running one sample through the forwarding
// pipeline.
type Outcome string

const (
	OutcomeForwarded        Outcome = "forwarded"
	OutcomeNotRunning       Outcome = "not_running"
	OutcomeInvalidSample    Outcome = "invalid_sample"
	OutcomeBelowThreshold   Outcome = "below_threshold"
	OutcomeCooldown         Outcome = "cooldown"
	OutcomeCircuitOpen      Outcome = "circuit_open"
	OutcomeLocalOnly        Outcome = "local_only"
	OutcomeTokenUnavailable Outcome = "token_unavailable"
	OutcomeFailed           Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }
