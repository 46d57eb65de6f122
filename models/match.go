package models

import (
	"strings"
	"time"
)

type MatchType string

const (
	MatchTypeLeague   MatchType = "league"
	MatchTypeKnockout MatchType = "knockout"
	MatchTypeFinal    MatchType = "final"
)

func (t MatchType) IsValid() bool {
	switch t {
	case MatchTypeLeague, MatchTypeKnockout, MatchTypeFinal:
		return true
	}
	return false
}

// IsElimination reports whether losing the match knocks a participant out.
func (t MatchType) IsElimination() bool {
	return t == MatchTypeKnockout || t == MatchTypeFinal
}

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusDraw      MatchStatus = "draw"
	MatchStatusCancelled MatchStatus = "cancelled"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusCompleted, MatchStatusDraw, MatchStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status can no longer change.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusDraw || s == MatchStatusCancelled
}

// CanTransitionTo: scheduled может перейти в любой статус, терминальный только сам в себя.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s == MatchStatusScheduled
}

type Qualifier struct {
	Participant string `json:"participant"`
	Position    int    `json:"position"`
}

type Match struct {
	ID          string      `json:"_id"`
	EventID     string      `json:"event_id"`
	SportsName  string      `json:"sports_name"`
	MatchNumber int         `json:"match_number"`
	MatchType   MatchType   `json:"match_type"`
	MatchDate   Date        `json:"match_date"`
	Status      MatchStatus `json:"status"`
	Teams       []string    `json:"teams"`
	Players     []string    `json:"players"`
	Winner      *string     `json:"winner"`
	Qualifiers  []Qualifier `json:"qualifiers"`
	CreatedBy   string      `json:"createdBy"`
	UpdatedBy   *string     `json:"updatedBy"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Participants returns whichever side list is populated, trimmed.
func (m *Match) Participants() []string {
	src := m.Teams
	if len(src) == 0 {
		src = m.Players
	}
	out := make([]string, 0, len(src))
	for _, p := range src {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m *Match) HasParticipant(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range m.Participants() {
		if p == name {
			return true
		}
	}
	return false
}

// WinnerName returns the trimmed winner or "".
func (m *Match) WinnerName() string {
	if m.Winner == nil {
		return ""
	}
	return strings.TrimSpace(*m.Winner)
}

// MatchView is a match as returned by the schedule listing, with its derived gender.
type MatchView struct {
	Match
	Gender *Gender `json:"gender"`
}

// PointsUpdate is the payload scheduling sends to scoring after a league match changes.
type PointsUpdate struct {
	UpdateID       string      `json:"update_id,omitempty"`
	Match          Match       `json:"match"`
	PreviousStatus MatchStatus `json:"previous_status"`
	PreviousWinner *string     `json:"previous_winner"`
	UserRegNumber  string      `json:"user_reg_number,omitempty"`
}
