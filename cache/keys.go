package cache

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Dosada05/sports-scheduling/models"
)

// Ключи повторяют путь и query запроса, который кэшируется.

const ActiveEventYearKey = "/event-configurations/event-years/active"

func normalizeEventID(eventID string) string {
	return url.QueryEscape(strings.ToLower(strings.TrimSpace(eventID)))
}

func ScheduleKey(sport, eventID string, gender models.Gender) string {
	key := fmt.Sprintf("/schedulings/event-schedule/%s?event_id=%s", models.NormalizeSportName(sport), normalizeEventID(eventID))
	if gender != "" {
		key += "&gender=" + string(gender)
	}
	return key
}

func TeamsPlayersKey(sport, eventID string, gender models.Gender) string {
	return fmt.Sprintf("/schedulings/event-schedule/%s/teams-players?event_id=%s&gender=%s",
		models.NormalizeSportName(sport), normalizeEventID(eventID), gender)
}

func PointsTableKey(sport, eventID string, gender models.Gender) string {
	return fmt.Sprintf("/scorings/points-table/%s?event_id=%s&gender=%s",
		models.NormalizeSportName(sport), normalizeEventID(eventID), gender)
}

// PointsTablePrefix covers every gender view of one sport's table.
func PointsTablePrefix(sport, eventID string) string {
	return fmt.Sprintf("/scorings/points-table/%s?event_id=%s", models.NormalizeSportName(sport), normalizeEventID(eventID))
}

// MatchKeys returns every schedule view a write to a match of the gender invalidates.
func MatchKeys(sport, eventID string, gender models.Gender) []string {
	keys := []string{ScheduleKey(sport, eventID, "")}
	if gender.IsValid() {
		keys = append(keys, ScheduleKey(sport, eventID, gender), TeamsPlayersKey(sport, eventID, gender))
	}
	return keys
}

// ScheduleViewKeys lists every cached schedule view of a sport across both genders.
func ScheduleViewKeys(sport, eventID string) []string {
	keys := []string{ScheduleKey(sport, eventID, "")}
	for _, g := range models.Genders {
		keys = append(keys, ScheduleKey(sport, eventID, g), TeamsPlayersKey(sport, eventID, g))
	}
	return keys
}

func PointsTableKeys(sport, eventID string) []string {
	keys := make([]string, 0, len(models.Genders))
	for _, g := range models.Genders {
		keys = append(keys, PointsTableKey(sport, eventID, g))
	}
	return keys
}
