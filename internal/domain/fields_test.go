package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText_NormalizesValueShapes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "raw string", in: "Urgent", want: "Urgent"},
		{name: "tagged option", in: map[string]any{"id": 3, "value": "Urgent", "color": "red"}, want: "Urgent"},
		{name: "field map option", in: FieldMap{"value": "New"}, want: "New"},
		{name: "nested nil option", in: map[string]any{"value": nil}, want: ""},
		{name: "json number", in: json.Number("42"), want: "42"},
		{name: "float", in: float64(7), want: "7"},
		{name: "bool", in: true, want: "true"},
		{name: "option array", in: []any{map[string]any{"value": "a"}, "b", nil}, want: "a, b"},
		{name: "attachment", in: []any{map[string]any{"url": "https://x/y.png", "filename": "y.png"}}, want: "y.png"},
		{name: "attachment without name", in: []any{map[string]any{"url": "https://x/y.png"}}, want: "https://x/y.png"},
		{name: "unknown type", in: struct{}{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestFieldMap_Clone_IsDeep(t *testing.T) {
	orig := FieldMap{
		"Status":     map[string]any{"value": "New"},
		"Attachment": []any{map[string]any{"url": "a"}},
	}
	clone := orig.Clone()
	clone["Status"].(map[string]any)["value"] = "Closed"
	clone["Attachment"].([]any)[0].(map[string]any)["url"] = "b"

	assert.Equal(t, "New", orig.Text("Status"))
	assert.Equal(t, "a", orig.Text("Attachment"))
}

func TestTicket_Defaults(t *testing.T) {
	cols := DefaultColumns()
	tk := Ticket{ID: "rec0000abcdef", Fields: FieldMap{}}

	assert.Equal(t, "New", tk.Status(cols))
	assert.Equal(t, "Normal", tk.Urgency(cols))
	assert.Equal(t, "rec0000abcdef", tk.DisplayID(cols))
	assert.Equal(t, "bcdef", tk.ShortID(cols))

	tk.Fields[cols.TicketID] = "T1"
	tk.Fields[cols.Status] = map[string]any{"value": "Resolved"}
	assert.Equal(t, "T1", tk.ShortID(cols))
	assert.Equal(t, "Resolved", tk.Status(cols))
}

func TestParseStatus_CaseInsensitive(t *testing.T) {
	st, ok := ParseStatus(" in progress ")
	assert.True(t, ok)
	assert.Equal(t, TicketStatusInProgress, st)

	_, ok = ParseStatus("Done")
	assert.False(t, ok)
}

func TestColumns_WithDefaults(t *testing.T) {
	cols := Columns{Status: "State"}.WithDefaults()
	assert.Equal(t, "State", cols.Status)
	assert.Equal(t, "Ticket Title", cols.Title)
}
