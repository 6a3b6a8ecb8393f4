// Package auth carries authenticated actor identity through the request
// context and enforces role requirements on routes. Authentication itself
// (login, token issuance) happens outside this service; requests arrive with
// a signed token that names the actor and their clinic role.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Clinic roles.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
)

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsDoctor reports whether the actor holds the doctor role.
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }

// IsReceptionist reports whether the actor holds the receptionist role.
func (a Actor) IsReceptionist() bool { return a.Role == RoleReceptionist }

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext retrieves the actor from context. The zero Actor is
// returned for unauthenticated contexts.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey).(Actor)
	return a
}
