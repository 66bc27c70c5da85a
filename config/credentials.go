package config

import (
	"errors"
	"log"
	"os"

	"emidesk-backend/models"

	"gorm.io/gorm"
)

// RoleCredential is a login seeded for one of the fixed staff roles.
type RoleCredential struct {
	Role     string
	Username string
	Password string
}

// Per-role environment variables holding "username:password" pairs.
var credentialEnvVars = map[string]string{
	models.RoleEmployee:  "EMPLOYEE_CREDENTIALS",
	models.RolePartner:   "PARTNER_CREDENTIALS",
	models.RoleIBA:       "IBA_CREDENTIALS",
	models.RolePrincipal: "PRINCIPAL_CREDENTIALS",
}

// LoadRoleCredentials reads the role-to-credential mapping from the
// environment. Roles without a configured credential are skipped; the
// operator decides which dashboards are reachable.
func LoadRoleCredentials() []RoleCredential {
	var creds []RoleCredential
	for role, envVar := range credentialEnvVars {
		raw := os.Getenv(envVar)
		if raw == "" {
			continue
		}
		username, password, ok := splitCredential(raw)
		if !ok {
			log.Printf("Ignoring malformed %s, expected username:password", envVar)
			continue
		}
		creds = append(creds, RoleCredential{Role: role, Username: username, Password: password})
	}
	return creds
}

func splitCredential(raw string) (string, string, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			if i == 0 || i == len(raw)-1 {
				return "", "", false
			}
			return raw[:i], raw[i+1:], true
		}
	}
	return "", "", false
}

// SeedRoleUsers creates a user per configured role credential if one
// with the same username does not exist yet.
func SeedRoleUsers(db *gorm.DB, creds []RoleCredential) error {
	for _, cred := range creds {
		var existing models.User
		err := db.Where("username = ?", cred.Username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user := models.User{
			Username: cred.Username,
			Password: cred.Password, // hashed in BeforeCreate hook
			Name:     cred.Role,
			Role:     cred.Role,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("Seeded %s user %q", cred.Role, cred.Username)
	}
	return nil
}
