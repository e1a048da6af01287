package telemetry

// Event is one notable simulation occurrence written to events.csv:
// player actions, disasters, migration waves.
type Event struct {
	Tick   int64  `csv:"tick"`
	Kind   string `csv:"kind"`
	Detail string `csv:"detail"`
}
