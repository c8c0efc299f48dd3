package services

import "github.com/kendall-kelly/fixnow-api/models"

// Actor is the authenticated profile performing an operation
type Actor struct {
	ID   string
	Role models.Role
}

// ActorFor builds the actor for a loaded profile
func ActorFor(p *models.Profile) Actor {
	return Actor{ID: p.ID, Role: p.Role}
}

func (a Actor) IsAdmin() bool    { return a.Role == models.RoleAdmin }
func (a Actor) IsClient() bool   { return a.Role == models.RoleClient }
func (a Actor) IsProvider() bool { return a.Role == models.RoleProvider }
