package delivery

// Task is one unit of handoff work between the ingest handler and a
// delivery worker: an event payload destined for one subscription. The
// worker re-resolves the subscription (target URL, secret, current event
// filter) at dispatch time rather than trusting a snapshot taken at ingest.
// Tasks live only in memory: one accepted but not yet delivered is lost if
// the process crashes.
type Task struct {
	SubscriptionID string
	EventTypes     []string
	Payload        []byte
	// End, when true, is a sentinel marker telling the receiving worker to
	// exit its loop rather than a real delivery task.
	End bool
}
