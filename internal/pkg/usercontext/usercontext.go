package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the caller of a request
type UserContext struct {
	UserID     uint   `json:"userId"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

func (u UserContext) IsAdmin() bool {
	return u.IsLoggedIn && u.Role == "ADMIN"
}

// Set stores the user context on the request
func Set(c *fiber.Ctx, u UserContext) {
	c.Locals(LocalsKey, u)
}

// GetUserContext returns the anonymous context when none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if u, ok := c.Locals(LocalsKey).(UserContext); ok {
		return u
	}
	return UserContext{}
}

func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin()
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
