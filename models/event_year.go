package models

// DateRange хранит границы периода в том виде, в котором их отдает event-configuration
// (YYYY-MM-DD или RFC3339).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type EventYear struct {
	EventID           string    `json:"event_id"`
	EventYear         int       `json:"event_year"`
	EventName         string    `json:"event_name,omitempty"`
	EventDates        DateRange `json:"event_dates"`
	RegistrationDates DateRange `json:"registration_dates"`
	IsActive          bool      `json:"is_active,omitempty"`
}
