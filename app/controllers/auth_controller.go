package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/entitlements"
	"github.com/uzeed/uzeed/internal/pkg/session"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

var validate = validator.New()

// AuthController handles registration and the session lifecycle
type AuthController struct {
	users         repository.UserRepository
	shopTrialDays int
	now           func() time.Time
}

func NewAuthController(users repository.UserRepository, shopTrialDays int) *AuthController {
	return &AuthController{
		users:         users,
		shopTrialDays: shopTrialDays,
		now:           time.Now,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=200"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	Username    string `json:"username" validate:"required,min=3,max=50"`
	DisplayName string `json:"displayName" validate:"max=150"`
	Phone       string `json:"phone" validate:"max=40"`
	Address     string `json:"address" validate:"max=255"`
	ProfileType string `json:"profileType" validate:"omitempty,oneof=VIEWER CREATOR PROFESSIONAL SHOP"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates an account and signs it in. SHOP profiles start with
// a trial instead of a paid plan.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "VALIDATION", "details": validationDetails(err)})
	}

	if _, err := ac.users.GetByEmail(req.Email); err == nil {
		return errorJSON(c, fiber.StatusConflict, "EMAIL_IN_USE")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if _, err := ac.users.GetByUsername(req.Username); err == nil {
		return errorJSON(c, fiber.StatusConflict, "USERNAME_IN_USE")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password, req.ProfileType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "VALIDATION", "details": validationDetails(err)})
	}
	user.DisplayName = strings.TrimSpace(req.DisplayName)
	user.Phone = strings.TrimSpace(req.Phone)
	user.Address = strings.TrimSpace(req.Address)
	if user.ProfileType == models.ProfileTypeShop {
		trial := entitlements.TrialEnd(ac.now(), ac.shopTrialDays)
		user.ShopTrialEndsAt = &trial
	}

	if err := ac.users.Create(user); err != nil {
		return err
	}
	if err := session.Login(c, user.ID, user.Role); err != nil {
		return err
	}
	log.Infof("[Auth] registered user=%d type=%s", user.ID, user.ProfileType)
	return c.JSON(fiber.Map{"user": user})
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "VALIDATION", "details": validationDetails(err)})
	}

	// unknown email and wrong password answer the same way
	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
		}
		return err
	}
	if !user.CheckPassword(req.Password) {
		return errorJSON(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	}

	if err := session.Login(c, user.ID, user.Role); err != nil {
		return err
	}
	if err := ac.users.TouchLastLogin(user.ID, ac.now()); err != nil {
		log.Warnf("[Auth] update last login for user %d failed: %v", user.ID, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMe returns the signed in user, or a null user for anonymous callers.
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return c.JSON(fiber.Map{"user": nil})
	}
	user, err := ac.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"user": nil})
		}
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

// validationDetails lists the failed fields of a validator error.
func validationDetails(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
