package format

import "dartdash/internal/row"

// NotAssignedNotice is appended to active rows running without an
// assignment on their host.
const NotAssignedNotice = "process not assigned to host"

// Description formats the description column of the active table. The
// first cell is the description itself; notices follow as critical cells.
// ignored reports whether the row identity is on the ignore list, which
// suppresses the unassigned notice.
func Description(r row.Row, ignored bool) []Cell {
	if r.Description == "" {
		return []Cell{{Text: Placeholder, Tier: TierEmpty}}
	}
	cells := []Cell{{Text: r.Description, Tier: TierEmpty}}
	if r.Context == row.Active && r.Environment == "" && !ignored {
		cells = append(cells, Cell{Text: NotAssignedNotice, Tier: TierCritical})
	}
	if r.Error != "" {
		cells = append(cells, Cell{Text: r.Error, Tier: TierCritical})
	}
	return cells
}
