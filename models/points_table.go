package models

import "time"

type ParticipantType string

const (
	ParticipantTypeTeam   ParticipantType = "team"
	ParticipantTypePlayer ParticipantType = "player"
)

// ParticipantTypeFor maps a sport type to the kind of participant it schedules.
func ParticipantTypeFor(t SportType) ParticipantType {
	if t.IsTeam() {
		return ParticipantTypeTeam
	}
	return ParticipantTypePlayer
}

// Tally is a participant's running league record.
type Tally struct {
	Points           int `json:"points"`
	MatchesPlayed    int `json:"matches_played"`
	MatchesWon       int `json:"matches_won"`
	MatchesLost      int `json:"matches_lost"`
	MatchesDraw      int `json:"matches_draw"`
	MatchesCancelled int `json:"matches_cancelled"`
}

const (
	PointsForWin       = 2
	PointsForDraw      = 1
	PointsForCancelled = 1
)

// Contribution returns what a single league match outcome adds to participant's tally.
// A scheduled match contributes nothing. A completed match without a winner counts as played only.
func Contribution(status MatchStatus, winner, participant string) Tally {
	var t Tally
	switch status {
	case MatchStatusCompleted:
		t.MatchesPlayed = 1
		if winner == "" {
			return t
		}
		if winner == participant {
			t.Points = PointsForWin
			t.MatchesWon = 1
		} else {
			t.MatchesLost = 1
		}
	case MatchStatusDraw:
		t.MatchesPlayed = 1
		t.Points = PointsForDraw
		t.MatchesDraw = 1
	case MatchStatusCancelled:
		t.MatchesPlayed = 1
		t.Points = PointsForCancelled
		t.MatchesCancelled = 1
	}
	return t
}

func (t Tally) Add(o Tally) Tally {
	return Tally{
		Points:           t.Points + o.Points,
		MatchesPlayed:    t.MatchesPlayed + o.MatchesPlayed,
		MatchesWon:       t.MatchesWon + o.MatchesWon,
		MatchesLost:      t.MatchesLost + o.MatchesLost,
		MatchesDraw:      t.MatchesDraw + o.MatchesDraw,
		MatchesCancelled: t.MatchesCancelled + o.MatchesCancelled,
	}
}

// Sub removes o from t, flooring every counter at zero.
func (t Tally) Sub(o Tally) Tally {
	return Tally{
		Points:           floorZero(t.Points - o.Points),
		MatchesPlayed:    floorZero(t.MatchesPlayed - o.MatchesPlayed),
		MatchesWon:       floorZero(t.MatchesWon - o.MatchesWon),
		MatchesLost:      floorZero(t.MatchesLost - o.MatchesLost),
		MatchesDraw:      floorZero(t.MatchesDraw - o.MatchesDraw),
		MatchesCancelled: floorZero(t.MatchesCancelled - o.MatchesCancelled),
	}
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

type PointsTableEntry struct {
	ID              int64           `json:"_id,omitempty"`
	EventID         string          `json:"event_id"`
	SportsName      string          `json:"sports_name"`
	Participant     string          `json:"participant"`
	ParticipantType ParticipantType `json:"participant_type"`
	Tally
	CreatedBy *string   `json:"createdBy"`
	UpdatedBy *string   `json:"updatedBy"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointsTableView is the response of the points table read path.
type PointsTableView struct {
	Sport             string             `json:"sport"`
	EventID           string             `json:"event_id,omitempty"`
	Gender            Gender             `json:"gender,omitempty"`
	PointsTable       []PointsTableEntry `json:"points_table"`
	TotalParticipants int                `json:"total_participants"`
	HasLeagueMatches  bool               `json:"has_league_matches"`
}

type BackfillResult struct {
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Errors    int    `json:"errors"`
	Message   string `json:"message"`
	Snapshot  string `json:"snapshot_url,omitempty"`
}
