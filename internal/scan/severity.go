package scan

// Severity ranks a completed run by its overall success rate.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarning
	SeverityCritical
)

const (
	// CriticalBelowPct marks runs whose success rate warrants a non-zero exit.
	CriticalBelowPct = 30.0
	// WarnBelowPct marks degraded but tolerable runs.
	WarnBelowPct = 60.0
)

// ClassifySeverity maps an overall success rate (percentage) to a tier:
// below 30 is critical, 30 to 60 is a warning, above 60 is normal.
func ClassifySeverity(successRate float64) Severity {
	switch {
	case successRate < CriticalBelowPct:
		return SeverityCritical
	case successRate <= WarnBelowPct:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "normal"
	}
}
