package purge

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kong/portpurge/internal/port"
	workflow "github.com/kong/portpurge/internal/purge"
	"github.com/kong/portpurge/internal/theme"
)

// textProgress renders run events as human readable lines.
type textProgress struct {
	out    io.Writer
	styles theme.Styles
}

func newTextProgress(out io.Writer, styles theme.Styles) *textProgress {
	return &textProgress{out: out, styles: styles}
}

func (p *textProgress) println(line string) {
	fmt.Fprintln(p.out, line)
}

func (p *textProgress) handle(e workflow.Event) {
	switch e.Kind {
	case workflow.EventAuthenticating:
		p.println("Authenticating with Port...")
	case workflow.EventAuthenticated:
		p.println("Access token acquired.\n")
	case workflow.EventSearching:
		p.println(fmt.Sprintf("Searching for entities with datasource containing '%s'...", e.IntegrationID))
	case workflow.EventFound:
		p.println(fmt.Sprintf("Found %d entities.\n", e.Count))
	case workflow.EventBlueprint:
		p.println(p.styles.Heading.Render("Blueprint: " + e.Blueprint))
		p.println(fmt.Sprintf("Number of entities to be deleted: %d", len(e.Identifiers)))
		p.println(p.styles.Muted.Render("Entities ids: "+formatIdentifiers(e.Identifiers)) + "\n")
	case workflow.EventBatchDeleted:
		p.println(fmt.Sprintf("Deleting batch %d/%d (%d entities)...", e.Batch, e.Batches, len(e.Identifiers)))
		p.println(p.styles.Success.Render("Delete result: "+formatResult(e.Result)) + "\n")
	case workflow.EventBatchSkipped:
		p.println(p.styles.Warning.Render(fmt.Sprintf(
			"Dry run enabled, batch %d/%d (%d entities) not deleted.", e.Batch, e.Batches, len(e.Identifiers))) + "\n")
	case workflow.EventIntegrationDeleted:
		p.println(p.styles.Success.Render(fmt.Sprintf("Integration '%s' deleted.", e.IntegrationID)))
	case workflow.EventIntegrationSkipped:
		p.println(p.styles.Warning.Render(fmt.Sprintf(
			"Dry run enabled, integration '%s' not deleted.", e.IntegrationID)))
	}
}

// summary prints the closing line for a run that ended with runErr (nil on
// success).
func (p *textProgress) summary(report *workflow.Report, runErr error) error {
	var line string
	switch {
	case runErr != nil:
		line = p.styles.Danger.Render(fmt.Sprintf("Stopped after deleting %d of %d entities.",
			report.EntitiesDeleted, report.EntitiesFound))
	case report.DryRun:
		line = fmt.Sprintf("Dry run complete: %d entities across %d blueprints would be deleted.",
			report.EntitiesFound, len(report.Blueprints))
	default:
		line = fmt.Sprintf("Deleted %d of %d entities across %d blueprints.",
			report.EntitiesDeleted, report.EntitiesFound, len(report.Blueprints))
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

func formatIdentifiers(ids []string) string {
	return "[" + strings.Join(ids, ", ") + "]"
}

func formatResult(result port.BulkDeleteResult) string {
	if len(result) == 0 {
		return "{}"
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(map[string]any(result))
	}
	return string(b)
}
