package purge

import "github.com/kong/portpurge/internal/port"

// Group holds the identifiers of one blueprint in the order they were received.
type Group struct {
	Blueprint   string
	Identifiers []string
}

// Grouping is an ordered blueprint → identifiers mapping. Groups appear in the
// order their blueprint was first seen.
type Grouping []Group

// GroupByBlueprint partitions entities by blueprint. Entities missing either
// an identifier or a blueprint are skipped.
func GroupByBlueprint(entities []port.Entity) Grouping {
	index := make(map[string]int)
	var grouping Grouping
	for _, entity := range entities {
		if entity.Identifier == "" || entity.Blueprint == "" {
			continue
		}
		i, ok := index[entity.Blueprint]
		if !ok {
			i = len(grouping)
			index[entity.Blueprint] = i
			grouping = append(grouping, Group{Blueprint: entity.Blueprint})
		}
		grouping[i].Identifiers = append(grouping[i].Identifiers, entity.Identifier)
	}
	return grouping
}

// Total is the number of identifiers across all groups.
func (g Grouping) Total() int {
	total := 0
	for _, group := range g {
		total += len(group.Identifiers)
	}
	return total
}
