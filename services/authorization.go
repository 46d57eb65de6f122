package services

import (
	"strings"

	"github.com/Dosada05/sports-scheduling/models"
)

// Authorizer decides who may manage a sport's matches: the configured admin or
// any of the sport's eligible coordinators.
type Authorizer struct {
	adminRegNumber string
}

func NewAuthorizer(adminRegNumber string) Authorizer {
	return Authorizer{adminRegNumber: strings.TrimSpace(adminRegNumber)}
}

func (a Authorizer) IsAdmin(regNumber string) bool {
	return a.adminRegNumber != "" && strings.TrimSpace(regNumber) == a.adminRegNumber
}

func (a Authorizer) RequireAdminOrCoordinator(regNumber string, sport *models.Sport) error {
	if a.IsAdmin(regNumber) {
		return nil
	}
	if sport != nil && regNumber != "" && sport.IsCoordinator(strings.TrimSpace(regNumber)) {
		return nil
	}
	return ErrCoordinatorRequired
}
