package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "USER"
	ROLE_ADMIN = "ADMIN"
)

// Profile types decide what a user can publish and who may message them.
const (
	ProfileTypeViewer       = "VIEWER"
	ProfileTypeCreator      = "CREATOR"
	ProfileTypeProfessional = "PROFESSIONAL"
	ProfileTypeShop         = "SHOP"
)

type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Email               string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Username            string         `gorm:"uniqueIndex;type:varchar(50)" json:"username" validate:"required,min=3,max=50"`
	PasswordHash        string         `gorm:"type:text" json:"-" validate:"required"`
	DisplayName         string         `gorm:"type:varchar(150)" json:"displayName" validate:"max=150"`
	Role                string         `gorm:"type:varchar(20);default:'USER'" json:"role" validate:"oneof=USER ADMIN"`
	ProfileType         string         `gorm:"type:varchar(20);default:'VIEWER';index" json:"profileType" validate:"oneof=VIEWER CREATOR PROFESSIONAL SHOP"`
	AllowFreeMessages   bool           `gorm:"default:false" json:"allowFreeMessages"`
	SubscriptionPrice   *int           `json:"subscriptionPrice"`
	MembershipExpiresAt *time.Time     `gorm:"type:timestamp;default:null;index" json:"membershipExpiresAt"`
	ShopTrialEndsAt     *time.Time     `gorm:"type:timestamp;default:null" json:"shopTrialEndsAt"`
	Bio                 string         `gorm:"type:text" json:"bio" validate:"max=1000"`
	AvatarURL           string         `gorm:"type:varchar(255)" json:"avatarUrl"`
	CoverURL            string         `gorm:"type:varchar(255)" json:"coverUrl"`
	Phone               string         `gorm:"type:varchar(40)" json:"phone"`
	Address             string         `gorm:"type:varchar(255)" json:"address"`
	City                string         `gorm:"type:varchar(120);index" json:"city"`
	ServiceCategory     string         `gorm:"type:varchar(120)" json:"serviceCategory"`
	ServiceDescription  string         `gorm:"type:text" json:"serviceDescription"`
	Latitude            *float64       `json:"latitude"`
	Longitude           *float64       `json:"longitude"`
	ProfileViews        int64          `gorm:"not null;default:0" json:"profileViews"`
	LastLoginAt         *time.Time     `gorm:"type:timestamp;default:null" json:"lastLoginAt"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated, not yet persisted user with a hashed password.
func CreateUser(username, email, password, profileType string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if profileType == "" {
		profileType = ProfileTypeViewer
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: pw,
		Role:         ROLE_USER,
		ProfileType:  profileType,
	}
	if profileType == ProfileTypeCreator || profileType == ProfileTypeProfessional {
		price := 2500
		u.SubscriptionPrice = &price
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// IsBusiness reports whether the profile is listed in services and maps.
func (u *User) IsBusiness() bool {
	return u.ProfileType == ProfileTypeProfessional || u.ProfileType == ProfileTypeShop
}
