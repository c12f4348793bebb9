package risk

var factorAdvice = map[Factor]string{
	FactorSuspiciousAddress: "Switch to a trusted network; this address shows recent suspicious activity",
	FactorUnusualHour:       "Confirm this sign-in was expected; it happened outside usual hours",
	FactorSessionCapReached: "Review active sessions and sign out the ones you do not recognise",
	FactorGeoAnomaly:        "Review recent sign-in locations for unfamiliar places",
	FactorAutomatedClient:   "Use a standard browser; automated clients are restricted",
	FactorRapidRequests:     "Slow down; requests are arriving faster than expected",
}

const adviceEnableMFA = "Enable multi-factor authentication"

func recommendations(a Assessment) []string {
	out := make([]string, 0, len(a.Factors)+1)
	for _, f := range a.Factors {
		if advice, ok := factorAdvice[f]; ok {
			out = append(out, advice)
		}
	}
	if a.RequireMFA {
		out = append(out, adviceEnableMFA)
	}
	return out
}
