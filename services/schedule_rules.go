package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/sports-scheduling/models"
)

const (
	minMultiParticipants = 3
	maxMultiParticipants = 100
)

// sideLabels names the participant kind of a sport in error messages.
type sideLabels struct {
	plural string
	single string
	set    string
}

func labelsFor(t models.SportType) sideLabels {
	if t.IsTeam() {
		return sideLabels{plural: "teams", single: "Team", set: "team(s)"}
	}
	return sideLabels{plural: "players", single: "Player", set: "player(s)"}
}

// checkShape validates the participant list of a new match against the sport roster and returns
// the trimmed unique participants.
func checkShape(sport *models.Sport, input CreateMatchInput) ([]string, error) {
	labels := labelsFor(sport.Type)
	raw := input.Players
	if sport.Type.IsTeam() {
		raw = input.Teams
	}
	if len(raw) == 0 {
		if sport.Type.IsTeam() {
			return nil, validationError("Teams array is required for team sports")
		}
		return nil, validationError("Players array is required for individual/cultural sports")
	}
	unique := uniqueTrimmed(raw)

	if sport.Type.IsDual() {
		if len(unique) != 2 {
			return nil, validationError("%s sports require exactly 2 %s", sport.Type, labels.plural)
		}
	} else {
		if n := input.NumberOfParticipants; n != nil {
			if *n < minMultiParticipants || *n > maxMultiParticipants {
				return nil, validationError("number_of_participants must be between %d and %d", minMultiParticipants, maxMultiParticipants)
			}
			if len(unique) != *n {
				return nil, validationError("Number of %s (%d) does not match number_of_participants (%d)", labels.plural, len(unique), *n)
			}
		}
		if len(unique) <= 2 {
			return nil, validationError("%s sports require more than 2 %s", sport.Type, labels.plural)
		}
		if available := sport.RosterSize(); len(unique) > available {
			return nil, validationError("Cannot select %d %s. Only %d %s available.", len(unique), labels.plural, available, labels.set)
		}
	}

	for _, name := range unique {
		if sport.Type.IsTeam() {
			team, ok := sport.Team(name)
			if !ok {
				return nil, validationError("Team %q does not exist for %s", name, sport.Name)
			}
			if len(team.Players) == 0 {
				return nil, validationError("Some teams have no players")
			}
		} else if !sport.HasPlayer(name) {
			return nil, validationError("Player %q is not registered for %s", name, sport.Name)
		}
	}
	return unique, nil
}

// agreedGender requires every participant to resolve to the same gender.
func agreedGender(sport *models.Sport, participants []string, genders map[string]models.Gender) (models.Gender, error) {
	var first models.Gender
	for _, p := range participants {
		g, ok := genders[p]
		if !ok {
			if sport.Type.IsTeam() {
				return "", validationError("Could not determine gender for teams")
			}
			return "", validationError("Could not determine gender for players. Please ensure all players have a valid gender set.")
		}
		if first == "" {
			first = g
			continue
		}
		if g != first {
			if sport.Type.IsTeam() {
				return "", validationError("All teams must have players of the same gender for team matches")
			}
			return "", validationError("All players must have the same gender")
		}
	}
	return first, nil
}

func checkMatchTypeForSport(matchType models.MatchType, sportType models.SportType) error {
	if matchType == models.MatchTypeLeague && !sportType.IsDual() {
		return validationError(`match_type "league" is not allowed for multi_team and multi_player sports`)
	}
	return nil
}

func filterMatches(matches []models.Match, keep func(*models.Match) bool) []models.Match {
	out := make([]models.Match, 0, len(matches))
	for i := range matches {
		if keep(&matches[i]) {
			out = append(out, matches[i])
		}
	}
	return out
}

func ofTypes(types ...models.MatchType) func(*models.Match) bool {
	return func(m *models.Match) bool {
		for _, t := range types {
			if m.MatchType == t {
				return true
			}
		}
		return false
	}
}

func missingResult(sportType models.SportType) (field, declared string) {
	if sportType.IsDual() {
		return "winner", "a winner declared"
	}
	return "qualifiers", "qualifiers declared"
}

func hasDeclaredResult(m *models.Match, sportType models.SportType) bool {
	if sportType.IsDual() {
		return m.WinnerName() != ""
	}
	return len(m.Qualifiers) > 0
}

// checkKnockoutPrerequisites requires every league match of the gender to be finished with a result.
func checkKnockoutPrerequisites(genderMatches []models.Match, sportType models.SportType) error {
	leagues := filterMatches(genderMatches, ofTypes(models.MatchTypeLeague))
	scheduled := 0
	var incomplete []string
	for i := range leagues {
		switch {
		case leagues[i].Status == models.MatchStatusScheduled:
			scheduled++
		case leagues[i].Status == models.MatchStatusCompleted && !hasDeclaredResult(&leagues[i], sportType):
			incomplete = append(incomplete, fmt.Sprintf("Match #%d", leagues[i].MatchNumber))
		}
	}
	if scheduled > 0 {
		return conflictError("Cannot schedule knockout match. There are %d scheduled league match(es) that must be completed, drawn, or cancelled first. All league matches must be finished before scheduling knockout matches.", scheduled)
	}
	if len(incomplete) > 0 {
		field, declared := missingResult(sportType)
		return conflictError("Cannot schedule knockout match. The following completed league match(es) are missing %s: %s. All completed league matches must have %s before scheduling knockout matches.",
			field, strings.Join(incomplete, ", "), declared)
	}
	return nil
}

// checkFinalPrerequisites requires every league and knockout match of the gender to be finished with a result.
func checkFinalPrerequisites(genderMatches []models.Match, sportType models.SportType) error {
	prior := filterMatches(genderMatches, ofTypes(models.MatchTypeLeague, models.MatchTypeKnockout))
	scheduled := 0
	types := make(map[models.MatchType]struct{})
	var incomplete []string
	for i := range prior {
		m := &prior[i]
		switch {
		case m.Status == models.MatchStatusScheduled:
			scheduled++
			types[m.MatchType] = struct{}{}
		case m.Status == models.MatchStatusCompleted && !hasDeclaredResult(m, sportType):
			incomplete = append(incomplete, fmt.Sprintf("%s Match #%d", m.MatchType, m.MatchNumber))
		}
	}
	if scheduled > 0 {
		label := "league or knockout"
		if len(types) == 1 {
			for t := range types {
				label = string(t)
			}
		}
		return conflictError("Cannot schedule final match. There are %d scheduled %s match(es) that must be completed, drawn, or cancelled first. All matches must be finished before scheduling the final.", scheduled, label)
	}
	if len(incomplete) > 0 {
		field, declared := missingResult(sportType)
		return conflictError("Cannot schedule final match. The following completed match(es) are missing %s: %s. All completed matches must have %s before scheduling the final.",
			field, strings.Join(incomplete, ", "), declared)
	}
	return nil
}

// checkEliminationConflicts rejects knocked-out participants and participants already locked
// into a scheduled knockout or final.
func checkEliminationConflicts(matchType models.MatchType, sportType models.SportType, participants []string, knockedOut, locked ParticipantSet) error {
	var inScheduled, eliminated []string
	for _, p := range participants {
		if locked.Has(p) {
			inScheduled = append(inScheduled, p)
		}
		if knockedOut.Has(p) {
			eliminated = append(eliminated, p)
		}
	}
	if len(inScheduled) == 0 && len(eliminated) == 0 {
		return nil
	}
	labels := labelsFor(sportType)
	var b strings.Builder
	fmt.Fprintf(&b, "Cannot schedule %s match. ", matchType)
	if len(inScheduled) > 0 {
		fmt.Fprintf(&b, "The following %s are already in a scheduled knockout or final match: %s. ", labels.set, strings.Join(inScheduled, ", "))
	}
	if len(eliminated) > 0 {
		fmt.Fprintf(&b, "The following %s have been knocked out in previous knockout or final matches: %s. ", labels.set, strings.Join(eliminated, ", "))
	}
	b.WriteString("Please select eligible participants.")
	return conflictError("%s", b.String())
}

func checkLeagueAllowed(genderMatches []models.Match, gender models.Gender) error {
	if len(filterMatches(genderMatches, ofTypes(models.MatchTypeKnockout, models.MatchTypeFinal))) > 0 {
		return conflictError("Cannot schedule league matches. Knockout matches already exist for this sport and gender (%s).", gender)
	}
	return nil
}

func latestDate(matches []models.Match, cal eventCalendar) (time.Time, bool) {
	var latest time.Time
	for i := range matches {
		if d := cal.day(matches[i].MatchDate.Time); d.After(latest) {
			latest = d
		}
	}
	return latest, len(matches) > 0
}

// checkStageOrder keeps knockouts on or after the last league day and finals on or after the last knockout day.
func checkStageOrder(matchType models.MatchType, date time.Time, genderMatches []models.Match, cal eventCalendar) error {
	if !matchType.IsElimination() {
		return nil
	}
	stage := "Knockout"
	if matchType == models.MatchTypeFinal {
		stage = "Final"
	}
	if latest, ok := latestDate(filterMatches(genderMatches, ofTypes(models.MatchTypeLeague)), cal); ok && date.Before(latest) {
		return conflictError("%s match date cannot be before all league matches. Latest league match date: %s", stage, latest.Format(models.DateLayout))
	}
	if matchType != models.MatchTypeFinal {
		return nil
	}
	if latest, ok := latestDate(filterMatches(genderMatches, ofTypes(models.MatchTypeKnockout)), cal); ok && date.Before(latest) {
		return conflictError("Final match date cannot be before all knockout matches. Latest knockout match date: %s", latest.Format(models.DateLayout))
	}
	return nil
}

// checkFinalRequirement forces a final when the request pairs the last two active participants.
func checkFinalRequirement(matchType models.MatchType, participants, active []string) error {
	if matchType == models.MatchTypeFinal || len(active) != 2 || len(participants) != 2 {
		return nil
	}
	activeSet := newParticipantSet(active...)
	for _, p := range participants {
		if !activeSet.Has(p) {
			return nil
		}
	}
	return conflictError("Cannot schedule %s match. Only 2 eligible participants remain for this gender. This match must be a final match.", matchType)
}

func checkNoFinal(genderMatches []models.Match, gender models.Gender) error {
	for i := range genderMatches {
		m := &genderMatches[i]
		if m.MatchType == models.MatchTypeFinal &&
			(m.Status == models.MatchStatusScheduled || m.Status == models.MatchStatusCompleted) {
			return conflictError("Cannot schedule new matches. A final match already exists for this sport and gender (%s).", gender)
		}
	}
	return nil
}

// checkQualifiers validates a multi-sport result: non-empty, dense unique positions, match participants only.
func checkQualifiers(match *models.Match, qualifiers []models.Qualifier) ([]models.Qualifier, error) {
	if len(qualifiers) == 0 {
		return nil, validationError("Qualifiers array is required for multi_team and multi_player sports")
	}
	positions := make([]int, len(qualifiers))
	for i, q := range qualifiers {
		positions[i] = q.Position
	}
	sort.Ints(positions)
	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1] {
			return nil, validationError("Qualifier positions must be unique")
		}
	}
	for i, p := range positions {
		if p != i+1 {
			return nil, validationError("Qualifier positions must be sequential (1, 2, 3, etc.)")
		}
	}
	out := make([]models.Qualifier, len(qualifiers))
	seen := newParticipantSet()
	for i, q := range qualifiers {
		name := strings.TrimSpace(q.Participant)
		if !match.HasParticipant(name) {
			return nil, validationError("Qualifier %q must be one of the match participants", q.Participant)
		}
		if seen.Has(name) {
			return nil, validationError("Qualifier %q is listed more than once", name)
		}
		seen.Add(name)
		out[i] = models.Qualifier{Participant: name, Position: q.Position}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
