package domain

import "time"

// AlertType identifies the detection rule that produced an alert.
type AlertType string

const (
	AlertMLScore        AlertType = "ML_SCORE"
	AlertVelocity       AlertType = "VELOCITY"
	AlertGeoAnomaly     AlertType = "GEO_ANOMALY"
	AlertOFACMatch      AlertType = "OFAC_MATCH"
	AlertAMLStructuring AlertType = "AML_STRUCTURING"
)

// AlertCategory groups alerts for downstream review queues.
type AlertCategory string

const (
	CategoryFraud     AlertCategory = "FRAUD"
	CategoryAML       AlertCategory = "AML"
	CategorySanctions AlertCategory = "SANCTIONS"
)

// RiskLevelHigh is the only risk level compliance rules emit today.
const RiskLevelHigh = "HIGH"

// Alert is a write-once detection result. TransactionIDs holds one id for
// per-record rules and the full triggering set for pattern rules. Evidence is
// free-form and rule-specific.
type Alert struct {
	AlertID        string
	ExecutionID    string
	Type           AlertType
	Category       AlertCategory
	TransactionIDs []string
	CardNumber     string
	RiskScore      float64
	RiskLevel      string
	DetectedAt     time.Time
	Evidence       map[string]string
	RequiresReview bool
}
