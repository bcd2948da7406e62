package utils

import (
	"testing"

	"channel-rotator/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	auth := NewAuth(&models.RotatorConfig{
		DeveloperIDs: []string{"dev"},
		AdminRoleIDs: []string{"mods"},
	})

	dev := &discordgo.Member{User: &discordgo.User{ID: "dev"}}
	mod := &discordgo.Member{User: &discordgo.User{ID: "m"}, Roles: []string{"x", "mods"}}
	owner := &discordgo.Member{User: &discordgo.User{ID: "o"}, Permissions: discordgo.PermissionAdministrator}
	user := &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"x"}}

	tests := []struct {
		name   string
		member *discordgo.Member
		level  string
		want   bool
	}{
		{"developer is admin", dev, LevelAdmin, true},
		{"developer level", dev, LevelDeveloper, true},
		{"role admin", mod, LevelAdmin, true},
		{"role admin is not developer", mod, LevelDeveloper, false},
		{"administrator permission", owner, LevelAdmin, true},
		{"plain user", user, LevelAdmin, false},
		{"guest always", nil, LevelGuest, true},
		{"nil member", nil, LevelAdmin, false},
		{"unknown level", dev, "root", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.CheckPermission(tt.member, tt.level))
		})
	}
}
