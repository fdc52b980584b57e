package obsx

import "go.eggybyte.com/egg/obsx/internal"

// Event sources written by the host.
const (
	HostingEvents     = "egg.http.hosting"
	ConnectionsEvents = "egg.http.server.connections"
)

// EventSource is a process-wide group of named counters.
type EventSource = internal.EventSource

// Events returns the event source called name, creating it on first use.
// Every call with the same name returns the same source.
func Events(name string) *EventSource {
	return internal.Source(name)
}
