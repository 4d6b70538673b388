package encoder

// Sample is a single encoder reading suitable for JSON and MQTT.
type Sample struct {
	Source string `json:"source"` // bus and address, or "mock"

	Count       uint16  `json:"count"`       // raw count, 0..16383
	Accumulator int64   `json:"accumulator"` // multi-turn position in counts
	AngleRad    float64 `json:"angle_rad"`
	AngleDeg    float64 `json:"angle_deg"`
	FullTurns   int64   `json:"full_turns"` // truncated toward zero
	Turns       float64 `json:"turns"`
	RPM         float64 `json:"rpm"`         // filtered
	InstantRPM  float64 `json:"instant_rpm"` // last estimate, unfiltered

	Time string `json:"time"` // RFC3339
}

// Stats mirrors the driver's update counters.
type Stats struct {
	Updates     uint64 `json:"updates"`
	Retries     uint64 `json:"retries"`
	Skipped     uint64 `json:"skipped"`
	Outliers    uint64 `json:"outliers"`
	ZeroElapsed uint64 `json:"zero_elapsed"`
}
