package cache

import (
	"strings"
	"sync"

	"github.com/Dosada05/sports-scheduling/models"
)

// GenderMemo remembers resolved genders of teams and players for the process lifetime.
// Only successful lookups are stored, so an unresolved participant is retried next time.
type GenderMemo interface {
	Team(sport, eventID, team string) (models.Gender, bool)
	SetTeam(sport, eventID, team string, g models.Gender)
	Player(eventID, regNumber string) (models.Gender, bool)
	SetPlayer(eventID, regNumber string, g models.Gender)

	InvalidateTeam(sport, eventID, team string)
	InvalidateSport(sport, eventID string)
	InvalidatePlayer(eventID, regNumber string)
}

type memoryGenderMemo struct {
	mu      sync.RWMutex
	teams   map[string]models.Gender
	players map[string]models.Gender
}

func NewGenderMemo() GenderMemo {
	return &memoryGenderMemo{
		teams:   make(map[string]models.Gender),
		players: make(map[string]models.Gender),
	}
}

func sportPrefix(sport, eventID string) string {
	return models.NormalizeSportName(sport) + ":" + strings.ToLower(strings.TrimSpace(eventID)) + ":"
}

func teamKey(sport, eventID, team string) string {
	return sportPrefix(sport, eventID) + strings.TrimSpace(team)
}

func playerKey(eventID, regNumber string) string {
	return strings.ToLower(strings.TrimSpace(eventID)) + ":" + strings.TrimSpace(regNumber)
}

func (m *memoryGenderMemo) Team(sport, eventID, team string) (models.Gender, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.teams[teamKey(sport, eventID, team)]
	return g, ok
}

func (m *memoryGenderMemo) SetTeam(sport, eventID, team string, g models.Gender) {
	if !g.IsValid() {
		return
	}
	m.mu.Lock()
	m.teams[teamKey(sport, eventID, team)] = g
	m.mu.Unlock()
}

func (m *memoryGenderMemo) Player(eventID, regNumber string) (models.Gender, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.players[playerKey(eventID, regNumber)]
	return g, ok
}

func (m *memoryGenderMemo) SetPlayer(eventID, regNumber string, g models.Gender) {
	if !g.IsValid() {
		return
	}
	m.mu.Lock()
	m.players[playerKey(eventID, regNumber)] = g
	m.mu.Unlock()
}

func (m *memoryGenderMemo) InvalidateTeam(sport, eventID, team string) {
	m.mu.Lock()
	delete(m.teams, teamKey(sport, eventID, team))
	m.mu.Unlock()
}

// InvalidateSport drops every team of the sport; used when the roster itself changes.
func (m *memoryGenderMemo) InvalidateSport(sport, eventID string) {
	prefix := sportPrefix(sport, eventID)
	m.mu.Lock()
	for k := range m.teams {
		if strings.HasPrefix(k, prefix) {
			delete(m.teams, k)
		}
	}
	m.mu.Unlock()
}

func (m *memoryGenderMemo) InvalidatePlayer(eventID, regNumber string) {
	m.mu.Lock()
	delete(m.players, playerKey(eventID, regNumber))
	m.mu.Unlock()
}
