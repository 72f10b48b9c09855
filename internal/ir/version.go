package ir

// Version constants for the plan format and engine.
const (
	// PlanVersion is the plan schema version. Bump it when PlanAction changes
	// shape, since it feeds into PlanHash.
	PlanVersion = "1"

	// EngineVersion is the vidsheet engine version.
	EngineVersion = "0.1.0"
)
