package domain

// Columns maps logical ticket and user fields to backend column names.
type Columns struct {
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Urgency        string `yaml:"urgency"`
	Attachment     string `yaml:"attachment"`
	TicketID       string `yaml:"ticket_id"`
	Status         string `yaml:"status"`
	Assignee       string `yaml:"assignee"`
	RequesterEmail string `yaml:"requester_email"`
	DateSubmitted  string `yaml:"date_submitted"`
	UserEmail      string `yaml:"user_email"`
	UserPassword   string `yaml:"user_password"`
	UserRole       string `yaml:"user_role"`
}

// DefaultColumns returns the column names used by the stock ticket table.
func DefaultColumns() Columns {
	return Columns{
		Title:          "Ticket Title",
		Description:    "Detailed Description",
		Urgency:        "Urgency Level",
		Attachment:     "Attachment",
		TicketID:       "Ticket ID",
		Status:         "Status",
		Assignee:       "Assigned Collaborator",
		RequesterEmail: "On Demand",
		DateSubmitted:  "Date Submited",
		UserEmail:      "User mail",
		UserPassword:   "Password",
		UserRole:       "Role",
	}
}

// WithDefaults fills empty entries from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Title, d.Title)
	fill(&c.Description, d.Description)
	fill(&c.Urgency, d.Urgency)
	fill(&c.Attachment, d.Attachment)
	fill(&c.TicketID, d.TicketID)
	fill(&c.Status, d.Status)
	fill(&c.Assignee, d.Assignee)
	fill(&c.RequesterEmail, d.RequesterEmail)
	fill(&c.DateSubmitted, d.DateSubmitted)
	fill(&c.UserEmail, d.UserEmail)
	fill(&c.UserPassword, d.UserPassword)
	fill(&c.UserRole, d.UserRole)
	return c
}
