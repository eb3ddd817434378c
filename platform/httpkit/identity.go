// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor role values carried in access tokens. The core only enforces the
// authorization rule per role; issuing tokens is an external concern.
const (
	RoleClient   = "client"
	RoleArtisan  = "artisan"
	RoleOperator = "operator"
)

// Identity represents the authenticated caller.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access actor information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// Role returns the actor role (client, artisan or operator).
	Role() string
	// HasRole checks the actor role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Role() string { return i.role }

func (i *identity) HasRole(role string) bool { return i.role == role }

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if no actor info is present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	role := ""
	if raw, ok := c.Get(ContextRoleKey); ok {
		role, _ = raw.(string)
	}

	return &identity{userID: uid, role: role, authenticated: true}
}

// MustGetIdentity extracts the Identity and aborts with 401 when the caller
// is not authenticated. The result is never nil: after an abort the
// unauthenticated identity is returned, so handlers reached through a
// misconfigured route fail role checks instead of dereferencing nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id
}
