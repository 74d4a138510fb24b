package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller a service call is made on behalf of.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   enums.UserRole
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// UserIDPtr returns nil for anonymous actors such as gateway callbacks.
func (a Actor) UserIDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
