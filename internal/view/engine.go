// Package view derives the displayed ticket list from a store snapshot.
// Every function here is pure: inputs are never mutated and nothing is cached.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Engine filters and sorts tickets using a column mapping.
type Engine struct {
	cols domain.Columns
}

// NewEngine returns an engine reading fields through cols.
func NewEngine(cols domain.Columns) Engine {
	return Engine{cols: cols.WithDefaults()}
}

// Columns returns the mapping the engine reads with.
func (e Engine) Columns() domain.Columns {
	return e.cols
}

// Project filters then sorts. It is the only entry point renderers use.
func (e Engine) Project(tickets []domain.Ticket, criteria FilterCriteria, state SortState) []domain.Ticket {
	return e.Sort(e.Filter(tickets, criteria), state)
}

// Filter returns the tickets matching status, urgency and search term, in
// input order.
func (e Engine) Filter(tickets []domain.Ticket, criteria FilterCriteria) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if e.Matches(t, criteria) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether t satisfies every predicate of criteria.
func (e Engine) Matches(t domain.Ticket, criteria FilterCriteria) bool {
	if !isAll(criteria.Status) && !strings.EqualFold(t.Status(e.cols), strings.TrimSpace(criteria.Status)) {
		return false
	}
	if !isAll(criteria.Urgency) && !strings.EqualFold(t.Urgency(e.cols), strings.TrimSpace(criteria.Urgency)) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm))
	return term == "" || e.matchesSearch(t, term)
}

func (e Engine) matchesSearch(t domain.Ticket, term string) bool {
	for _, field := range []string{
		t.Fields.Text(e.cols.Title),
		t.Fields.Text(e.cols.Description),
		t.Fields.Text(e.cols.RequesterEmail),
		t.DisplayID(e.cols),
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy. Without a column the input order is kept.
func (e Engine) Sort(tickets []domain.Ticket, state SortState) []domain.Ticket {
	if state.Column == ColumnNone {
		out := make([]domain.Ticket, len(tickets))
		copy(out, tickets)
		return out
	}

	if state.Column == ColumnCreatedAt {
		keys := make([]int64, len(tickets))
		for i, t := range tickets {
			keys[i] = Timestamp(t.SubmittedAt(e.cols))
		}
		return reorder(tickets, func(i, j int) int { return cmpInt(keys[i], keys[j]) }, state.Ascending)
	}

	keys := make([]string, len(tickets))
	for i, t := range tickets {
		keys[i] = strings.ToLower(e.sortText(t, state.Column))
	}
	return reorder(tickets, func(i, j int) int { return strings.Compare(keys[i], keys[j]) }, state.Ascending)
}

func (e Engine) sortText(t domain.Ticket, column Column) string {
	switch column {
	case ColumnTicketID:
		return t.DisplayID(e.cols)
	case ColumnTitle:
		return t.Fields.Text(e.cols.Title)
	case ColumnUrgency:
		return t.Urgency(e.cols)
	case ColumnStatus:
		return t.Status(e.cols)
	case ColumnAssignee:
		return t.Fields.Text(e.cols.Assignee)
	case ColumnRequesterEmail:
		return t.Fields.Text(e.cols.RequesterEmail)
	default:
		return ""
	}
}

// reorder returns tickets stably sorted by cmp over input positions.
// Descending flips the comparator instead of reversing, so ties keep input
// order in both directions.
func reorder(tickets []domain.Ticket, cmp func(i, j int) int, ascending bool) []domain.Ticket {
	idx := make([]int, len(tickets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := cmp(idx[a], idx[b])
		if ascending {
			return c < 0
		}
		return c > 0
	})
	out := make([]domain.Ticket, len(tickets))
	for i, from := range idx {
		out[i] = tickets[from]
	}
	return out
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp parses an ISO-8601 date as Unix milliseconds. Missing or
// unparseable dates are 0.
func Timestamp(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixMilli()
		}
	}
	return 0
}
