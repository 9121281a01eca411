package ics

import (
	"annualcal/internal/model"
)

// Drift describes how a previously published feed differs from the
// occurrences the current catalog produces for the same years.
type Drift struct {
	// Unknown holds published events whose UID is no longer produced,
	// e.g. because the summary was renamed or the UID scheme changed.
	Unknown []ParsedEvent
	// Moved holds published events whose UID is still produced but whose
	// date changed.
	Moved []Move
	// Checked is the number of published events inside the window.
	Checked int
}

// Move pairs a published event with its current occurrence.
type Move struct {
	Published ParsedEvent
	Current   model.Occurrence
}

// Empty reports whether no drift was found.
func (d Drift) Empty() bool {
	return len(d.Unknown) == 0 && len(d.Moved) == 0
}

// Compare checks published events that fall inside win against current.
// Events outside the window are ignored since the window slides every year.
func Compare(published []ParsedEvent, current []model.Occurrence, win Window) Drift {
	byUID := make(map[string]model.Occurrence, len(current))
	for _, o := range current {
		byUID[o.UID] = o
	}
	var d Drift
	for _, ev := range published {
		if !win.Contains(ev.Start.Year()) {
			continue
		}
		d.Checked++
		cur, ok := byUID[ev.UID]
		if !ok {
			d.Unknown = append(d.Unknown, ev)
			continue
		}
		if cur.Date != ev.Start {
			d.Moved = append(d.Moved, Move{Published: ev, Current: cur})
		}
	}
	return d
}
