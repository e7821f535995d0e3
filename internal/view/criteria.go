package view

import (
	"fmt"
	"strings"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Column identifies a sortable ticket column.
type Column string

const (
	ColumnNone           Column = ""
	ColumnTicketID       Column = "ticket_id"
	ColumnTitle          Column = "title"
	ColumnCreatedAt      Column = "created_at"
	ColumnUrgency        Column = "urgency"
	ColumnStatus         Column = "status"
	ColumnAssignee       Column = "assignee"
	ColumnRequesterEmail Column = "requester_email"
)

var columns = []Column{
	ColumnTicketID,
	ColumnTitle,
	ColumnCreatedAt,
	ColumnUrgency,
	ColumnStatus,
	ColumnAssignee,
	ColumnRequesterEmail,
}

// ParseColumn validates a sort column key. The empty string selects
// insertion order.
func ParseColumn(s string) (Column, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ColumnNone, nil
	}
	for _, c := range columns {
		if string(c) == s {
			return c, nil
		}
	}
	return ColumnNone, fmt.Errorf("unknown sort column %q", s)
}

// FilterCriteria selects which tickets a projection shows.
type FilterCriteria struct {
	Status     string `json:"status"`
	Urgency    string `json:"urgency"`
	SearchTerm string `json:"search"`
}

// DefaultCriteria matches every ticket.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{Status: domain.All, Urgency: domain.All}
}

// ParseCriteria validates raw criteria, mapping empty values to All.
func ParseCriteria(status, urgency, search string) (FilterCriteria, error) {
	c := FilterCriteria{Status: domain.All, Urgency: domain.All, SearchTerm: search}
	if !isAll(status) {
		st, ok := domain.ParseStatus(status)
		if !ok {
			return c, fmt.Errorf("unknown status %q", status)
		}
		c.Status = string(st)
	}
	if !isAll(urgency) {
		u, ok := domain.ParseUrgency(urgency)
		if !ok {
			return c, fmt.Errorf("unknown urgency %q", urgency)
		}
		c.Urgency = string(u)
	}
	return c, nil
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, domain.All)
}

// SortState is the current ordering of a projection.
type SortState struct {
	Column    Column `json:"column"`
	Ascending bool   `json:"ascending"`
}

// DefaultSort keeps store order.
func DefaultSort() SortState {
	return SortState{Column: ColumnNone, Ascending: true}
}

// Toggle returns the state after selecting column: the same column flips
// direction, another column starts ascending.
func (s SortState) Toggle(column Column) SortState {
	if column == ColumnNone {
		return DefaultSort()
	}
	if s.Column == column {
		return SortState{Column: column, Ascending: !s.Ascending}
	}
	return SortState{Column: column, Ascending: true}
}
