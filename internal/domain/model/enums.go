package model

// Severity classifies how serious a security issue is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// NormalizeSeverity maps arbitrary assessor output to a known severity.
// Unrecognized values fall back to SeverityInfo.
func NormalizeSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw)
	default:
		return SeverityInfo
	}
}

// RiskLevel summarizes an author's overall security posture in a report.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelForScore derives a risk level from an average security score.
func RiskLevelForScore(avgScore int) RiskLevel {
	switch {
	case avgScore >= 80:
		return RiskLow
	case avgScore >= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}
