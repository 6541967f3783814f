package purge

import "github.com/kong/portpurge/internal/port"

type EventKind int

const (
	EventAuthenticating EventKind = iota
	EventAuthenticated
	EventSearching
	EventFound
	EventBlueprint
	EventBatchDeleted
	// EventBatchSkipped reports a batch that dry-run mode did not send.
	EventBatchSkipped
	EventIntegrationDeleted
	EventIntegrationSkipped
)

func (k EventKind) String() string {
	return [...]string{
		"authenticating",
		"authenticated",
		"searching",
		"found",
		"blueprint",
		"batch-deleted",
		"batch-skipped",
		"integration-deleted",
		"integration-skipped",
	}[k]
}

// Event is a progress notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind          EventKind
	IntegrationID string
	Count         int
	Blueprint     string
	Identifiers   []string
	// Batch is 1-based.
	Batch   int
	Batches int
	Result  port.BulkDeleteResult
}

// ProgressFunc receives events synchronously as the run advances.
type ProgressFunc func(Event)
