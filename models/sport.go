package models

import "strings"

type SportType string

const (
	SportTypeDualTeam    SportType = "dual_team"
	SportTypeMultiTeam   SportType = "multi_team"
	SportTypeDualPlayer  SportType = "dual_player"
	SportTypeMultiPlayer SportType = "multi_player"
)

// IsTeam reports whether participants of the sport are teams.
func (t SportType) IsTeam() bool {
	return t == SportTypeDualTeam || t == SportTypeMultiTeam
}

// IsDual reports whether every match of the sport has exactly two sides.
func (t SportType) IsDual() bool {
	return t == SportTypeDualTeam || t == SportTypeDualPlayer
}

func (t SportType) IsValid() bool {
	switch t {
	case SportTypeDualTeam, SportTypeMultiTeam, SportTypeDualPlayer, SportTypeMultiPlayer:
		return true
	}
	return false
}

type SportTeam struct {
	TeamName string   `json:"team_name"`
	Captain  string   `json:"captain,omitempty"`
	Players  []string `json:"players"`
}

type Sport struct {
	Name                 string      `json:"name"`
	EventID              string      `json:"event_id"`
	Type                 SportType   `json:"type"`
	Category             string      `json:"category,omitempty"`
	TeamSize             *int        `json:"team_size,omitempty"`
	TeamsParticipated    []SportTeam `json:"teams_participated"`
	PlayersParticipated  []string    `json:"players_participated"`
	EligibleCaptains     []string    `json:"eligible_captains"`
	EligibleCoordinators []string    `json:"eligible_coordinators"`
}

// Team возвращает команду из состава по имени (с обрезкой пробелов).
func (s *Sport) Team(name string) (SportTeam, bool) {
	name = strings.TrimSpace(name)
	for _, team := range s.TeamsParticipated {
		if strings.TrimSpace(team.TeamName) == name {
			return team, true
		}
	}
	return SportTeam{}, false
}

func (s *Sport) HasPlayer(regNumber string) bool {
	regNumber = strings.TrimSpace(regNumber)
	for _, reg := range s.PlayersParticipated {
		if strings.TrimSpace(reg) == regNumber {
			return true
		}
	}
	return false
}

func (s *Sport) IsCoordinator(regNumber string) bool {
	for _, reg := range s.EligibleCoordinators {
		if reg == regNumber {
			return true
		}
	}
	return false
}

// RosterSize is the number of teams or players registered for the sport.
func (s *Sport) RosterSize() int {
	if s.Type.IsTeam() {
		return len(s.TeamsParticipated)
	}
	return len(s.PlayersParticipated)
}

// NormalizeSportName trims and lowercases a sport name for storage and lookups.
func NormalizeSportName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
