package models

type EligibleTeam struct {
	TeamName string `json:"team_name"`
	Gender   Gender `json:"gender"`
}

// TeamsPlayers is the eligible-for-scheduling view of a sport cohort.
type TeamsPlayers struct {
	Teams   []EligibleTeam `json:"teams"`
	Players []Player       `json:"players"`
}
