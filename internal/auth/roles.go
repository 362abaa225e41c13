// Package auth gates campaign sends behind signed tokens and role capabilities.
package auth

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUserInactive     = errors.New("user inactive")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
)

type Capability string

const (
	CapSendCampaigns   Capability = "send_campaigns"
	CapViewAnalytics   Capability = "view_analytics"
	CapManageTemplates Capability = "manage_templates"
	CapManageUsers     Capability = "manage_users"
)

// Capabilities is exhaustive over the closed role set; unknown roles get nothing.
func (r Role) Capabilities() []Capability {
	switch r {
	case RoleAdmin:
		return []Capability{CapSendCampaigns, CapViewAnalytics, CapManageTemplates, CapManageUsers}
	case RoleAgent:
		return []Capability{CapSendCampaigns, CapViewAnalytics}
	case RoleViewer:
		return []Capability{CapViewAnalytics}
	default:
		return nil
	}
}

func (r Role) Can(c Capability) bool {
	for _, have := range r.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// Authorize checks the active flag before the role, so an inactive admin is still refused.
func Authorize(u User, c Capability) error {
	if !u.Active {
		return fmt.Errorf("user %s: %w", u.ID, ErrUserInactive)
	}
	if !u.Role.Can(c) {
		return fmt.Errorf("user %s (%s) lacks %s: %w", u.ID, u.Role, c, ErrPermissionDenied)
	}
	return nil
}
