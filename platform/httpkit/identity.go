package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RoleAdmin is the role carried by staff tokens.
const RoleAdmin = "admin"

const contextIdentityKey = "httpkit.identity"

// Identity is the caller established by AuthRequired.
type Identity struct {
	UserID int64
	// Name is the display name recorded in audit trails.
	Name  string
	Roles []string
}

func (i Identity) HasRole(role string) bool { return slices.Contains(i.Roles, role) }

// SetIdentity attaches id to the request.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(contextIdentityKey, id)
}

// GetIdentity returns the caller. ok is false on unauthenticated routes.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(contextIdentityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustGetIdentity is GetIdentity that aborts with 401 when there is no caller.
func MustGetIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: "unauthorized"})
	}
	return id, ok
}
