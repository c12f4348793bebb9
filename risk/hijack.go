package risk

// HijackPolicy weighs the signals that a session is being used by someone else.
type HijackPolicy struct {
	AddressChanged    int
	SignatureMismatch int
	AddressChurn      int
	// MinSimilarity is the signature similarity below which SignatureMismatch applies.
	MinSimilarity float64
	// BlockAbove is the confidence above which the session is treated as hijacked.
	BlockAbove int
}

// DefaultHijackPolicy returns the standard hijack weights.
func DefaultHijackPolicy() HijackPolicy {
	return HijackPolicy{
		AddressChanged:    40,
		SignatureMismatch: 30,
		AddressChurn:      30,
		MinSimilarity:     0.7,
		BlockAbove:        60,
	}
}

// HijackSignals compares the current request with the session's last known context.
type HijackSignals struct {
	AddressChanged bool
	Similarity     float64
	AddressChurn   bool
}

// HijackVerdict is the outcome of a hijack evaluation.
type HijackVerdict struct {
	Confidence int
	Suspected  bool
	Reasons    []string
}

// EvaluateHijack scores s against p.
func (p HijackPolicy) EvaluateHijack(s HijackSignals) HijackVerdict {
	var v HijackVerdict
	if s.AddressChanged {
		v.Confidence += p.AddressChanged
		v.Reasons = append(v.Reasons, "network_address_changed")
	}
	if s.Similarity < p.MinSimilarity {
		v.Confidence += p.SignatureMismatch
		v.Reasons = append(v.Reasons, "device_signature_mismatch")
	}
	if s.AddressChurn {
		v.Confidence += p.AddressChurn
		v.Reasons = append(v.Reasons, "network_address_churn")
	}
	v.Confidence = min(v.Confidence, MaxScore)
	v.Suspected = v.Confidence > p.BlockAbove
	return v
}
