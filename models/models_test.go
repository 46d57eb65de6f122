package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContribution(t *testing.T) {
	tests := []struct {
		name   string
		status MatchStatus
		winner string
		who    string
		want   Tally
	}{
		{"scheduled", MatchStatusScheduled, "", "A", Tally{}},
		{"win", MatchStatusCompleted, "A", "A", Tally{Points: 2, MatchesPlayed: 1, MatchesWon: 1}},
		{"loss", MatchStatusCompleted, "A", "B", Tally{MatchesPlayed: 1, MatchesLost: 1}},
		{"completed without winner", MatchStatusCompleted, "", "B", Tally{MatchesPlayed: 1}},
		{"draw", MatchStatusDraw, "", "A", Tally{Points: 1, MatchesPlayed: 1, MatchesDraw: 1}},
		{"cancelled", MatchStatusCancelled, "", "A", Tally{Points: 1, MatchesPlayed: 1, MatchesCancelled: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contribution(tt.status, tt.winner, tt.who))
		})
	}
}

func TestTallySubFloorsAtZero(t *testing.T) {
	cur := Tally{Points: 1, MatchesPlayed: 1, MatchesDraw: 1}
	got := cur.Sub(Contribution(MatchStatusCompleted, "A", "A"))
	assert.Equal(t, Tally{MatchesDraw: 1}, got)

	win := Contribution(MatchStatusCompleted, "A", "A")
	assert.Equal(t, win, Tally{}.Add(win).Sub(Tally{}))
}

func TestCanTransitionTo(t *testing.T) {
	all := []MatchStatus{MatchStatusScheduled, MatchStatusCompleted, MatchStatusDraw, MatchStatusCancelled}
	for _, next := range all {
		assert.True(t, MatchStatusScheduled.CanTransitionTo(next), next)
	}
	for _, from := range all[1:] {
		for _, next := range all {
			assert.Equal(t, from == next, from.CanTransitionTo(next), "%s -> %s", from, next)
		}
	}
	assert.False(t, MatchStatusScheduled.CanTransitionTo("finished"))
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	d, err := ParseDate("2026-03-05", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, loc), d)

	// 20:00 UTC is already the next day in +05:30.
	d, err = ParseDate("2026-03-05T20:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, loc), d)

	for _, bad := range []string{"", "05/03/2026", "2026-13-01"} {
		_, err := ParseDate(bad, loc)
		assert.Error(t, err, bad)
	}
}

func TestWindowContainsIsInclusive(t *testing.T) {
	w, err := ParseWindow(DateRange{Start: "2026-03-03", End: "2026-03-10"}, time.UTC)
	require.NoError(t, err)
	assert.True(t, w.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestHumanDate(t *testing.T) {
	for day, want := range map[int]string{
		1: "1st Mar 2026", 2: "2nd Mar 2026", 3: "3rd Mar 2026", 4: "4th Mar 2026",
		11: "11th Mar 2026", 12: "12th Mar 2026", 13: "13th Mar 2026",
		21: "21st Mar 2026", 22: "22nd Mar 2026", 23: "23rd Mar 2026", 31: "31st Mar 2026",
	} {
		assert.Equal(t, want, HumanDate(time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)))
	}
}

func TestMatchParticipants(t *testing.T) {
	m := Match{Players: []string{" A ", "", "B"}, Winner: ptrTo(" A ")}
	assert.Equal(t, []string{"A", "B"}, m.Participants())
	assert.True(t, m.HasParticipant("A "))
	assert.False(t, m.HasParticipant("C"))
	assert.Equal(t, "A", m.WinnerName())

	team := Match{Teams: []string{"Lions"}, Players: []string{"X"}}
	assert.Equal(t, []string{"Lions"}, team.Participants())
}

func TestSportHelpers(t *testing.T) {
	s := Sport{
		Type:                 SportTypeMultiTeam,
		TeamsParticipated:    []SportTeam{{TeamName: " Red ", Players: []string{"P1"}}, {TeamName: "Blue"}},
		EligibleCoordinators: []string{"C1"},
	}
	team, ok := s.Team("Red")
	require.True(t, ok)
	assert.Equal(t, []string{"P1"}, team.Players)
	assert.Equal(t, 2, s.RosterSize())
	assert.True(t, s.IsCoordinator("C1"))
	assert.False(t, s.Type.IsDual())
	assert.Equal(t, "table tennis", NormalizeSportName("  Table Tennis "))
	assert.Equal(t, ParticipantTypeTeam, ParticipantTypeFor(s.Type))
}

func ptrTo(s string) *string { return &s }

func TestDateJSON(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	created := DateOf(time.Date(2026, 3, 7, 0, 0, 0, 0, ist))
	stored := DateOf(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, stored, created)

	js, err := json.Marshal(Match{MatchDate: created})
	require.NoError(t, err)
	assert.Contains(t, string(js), `"match_date":"2026-03-07"`)

	for _, raw := range []string{`"2026-03-07"`, `"2026-03-07T00:00:00+05:30"`, `"2026-03-07T23:30:00-08:00"`} {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.Equal(t, "2026-03-07", d.String(), raw)
	}

	var zero Date
	js, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(js))
	require.NoError(t, json.Unmarshal([]byte("null"), &zero))
	assert.True(t, zero.IsZero())

	var bad Date
	assert.Error(t, json.Unmarshal([]byte(`"07/03/2026"`), &bad))
}
