package purge

import "github.com/kong/portpurge/internal/port"

// Report summarizes one run. It is returned even when the run fails part way,
// in which case it reflects the work completed before the failure.
type Report struct {
	RunID             string            `json:"run_id" yaml:"run_id"`
	IntegrationID     string            `json:"integration_id" yaml:"integration_id"`
	DryRun            bool              `json:"dry_run" yaml:"dry_run"`
	BatchSize         int               `json:"batch_size" yaml:"batch_size"`
	EntitiesFound     int               `json:"entities_found" yaml:"entities_found"`
	EntitiesDeleted   int               `json:"entities_deleted" yaml:"entities_deleted"`
	Blueprints        []BlueprintReport `json:"blueprints" yaml:"blueprints"`
	Integration       *IntegrationState `json:"integration,omitempty" yaml:"integration,omitempty"`
	CompletedAllSteps bool              `json:"completed" yaml:"completed"`
}

type BlueprintReport struct {
	Blueprint   string        `json:"blueprint" yaml:"blueprint"`
	Identifiers []string      `json:"identifiers" yaml:"identifiers"`
	Batches     []BatchReport `json:"batches" yaml:"batches"`
	Deleted     int           `json:"deleted" yaml:"deleted"`
}

type BatchReport struct {
	Identifiers []string `json:"identifiers" yaml:"identifiers"`
	// Deleted is false in dry-run mode.
	Deleted bool                  `json:"deleted" yaml:"deleted"`
	Result  port.BulkDeleteResult `json:"result,omitempty" yaml:"result,omitempty"`
}

type IntegrationState struct {
	ID      string `json:"id" yaml:"id"`
	Deleted bool   `json:"deleted" yaml:"deleted"`
}
