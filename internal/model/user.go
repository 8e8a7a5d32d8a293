package model

import "time"

// User is an account identified by its Slack ID. Capability flags gate
// access to restricted upstream resources; tokens reference the user by ID.
type User struct {
	SlackID           string    `json:"slack_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	IsAdmin           bool      `json:"is_admin"`
	IsClubLeader      bool      `json:"is_club_leader"`
	CanUseSuperpowers bool      `json:"can_use_superpowers"`
	ImageUsageAllowed bool      `json:"image_usage_allowed"`
	GPT4UsageAllowed  bool      `json:"gpt4_usage_allowed"`
	IsBanned          bool      `json:"is_banned"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Capability names a boolean flag on a User that gates a resource tier.
type Capability string

const (
	CapabilityAdmin            Capability = "admin"
	CapabilityClubLeader       Capability = "club_leader"
	CapabilitySuperpowers      Capability = "superpowers"
	CapabilityImageGeneration  Capability = "image_generation"
	CapabilityRestrictedModels Capability = "restricted_models"
)

// Has reports whether the user carries the given capability flag.
func (u *User) Has(c Capability) bool {
	switch c {
	case CapabilityAdmin:
		return u.IsAdmin
	case CapabilityClubLeader:
		return u.IsClubLeader
	case CapabilitySuperpowers:
		return u.CanUseSuperpowers
	case CapabilityImageGeneration:
		return u.ImageUsageAllowed
	case CapabilityRestrictedModels:
		return u.GPT4UsageAllowed
	default:
		return false
	}
}
