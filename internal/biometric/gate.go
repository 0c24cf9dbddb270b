package biometric

// Verdict classifies a slot snapshot.
type Verdict int

const (
	Accepted Verdict = iota
	RejectedNone
	RejectedMultiple
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedNone:
		return "rejected_none"
	case RejectedMultiple:
		return "rejected_multiple"
	default:
		return "unknown"
	}
}

// GateResult is the outcome of Gate. Embedding is set only when Verdict is Accepted.
type GateResult struct {
	Verdict   Verdict
	Embedding Embedding
}

// Err maps a rejected result to its error, or nil when accepted.
func (r GateResult) Err() error {
	switch r.Verdict {
	case RejectedNone:
		return ErrNoFaceDetected
	case RejectedMultiple:
		return ErrMultipleFacesDetected
	default:
		return nil
	}
}

// Gate accepts a snapshot holding exactly one observation.
// It keeps no state, so callers must gate every read afresh.
func Gate(obs []Observation) GateResult {
	switch len(obs) {
	case 0:
		return GateResult{Verdict: RejectedNone}
	case 1:
		return GateResult{Verdict: Accepted, Embedding: obs[0].Embedding}
	default:
		return GateResult{Verdict: RejectedMultiple}
	}
}
