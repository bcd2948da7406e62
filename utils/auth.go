package utils

import (
	"slices"

	"channel-rotator/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels understood by CheckPermission.
const (
	LevelDeveloper = "developer"
	LevelAdmin     = "admin"
	LevelGuest     = "guest"
)

// Auth provides methods for authorization checks.
type Auth struct {
	developers  []string
	adminsRoles []string
}

// NewAuth creates a new Auth instance from the loaded configuration.
func NewAuth(cfg *models.RotatorConfig) *Auth {
	return &Auth{developers: cfg.DeveloperIDs, adminsRoles: cfg.AdminRoleIDs}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.developers, userID)
}

// IsAdmin checks if a member has an admin role or the guild Administrator permission.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, roleID := range member.Roles {
		if slices.Contains(a.adminsRoles, roleID) {
			return true
		}
	}
	return false
}

// CheckPermission checks if the invoking member has the required permission level.
func (a *Auth) CheckPermission(member *discordgo.Member, requiredLevel string) bool {
	if requiredLevel == LevelGuest {
		return true
	}
	if member == nil || member.User == nil {
		return false
	}

	switch requiredLevel {
	case LevelDeveloper:
		return a.IsDeveloper(member.User.ID)
	case LevelAdmin:
		return a.IsDeveloper(member.User.ID) || a.IsAdmin(member)
	default:
		return false
	}
}
