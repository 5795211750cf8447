package auth

import (
	"fmt"

	"finance-hub/internal/logger"
	"finance-hub/internal/session"

	"github.com/casbin/casbin/v2"
)

// RoleUser is granted to every registered account.
const RoleUser = "user"

const (
	read  = "GET"
	write = "(GET)|(POST)"
)

// DefaultPolicies is the baseline rule set. Paths use keyMatch2 patterns.
var DefaultPolicies = [][]string{
	// Public pages.
	{session.Anonymous, "/", read},
	{session.Anonymous, "/offers", read},
	{session.Anonymous, "/articles", read},
	{session.Anonymous, "/articles/:slug", read},
	{session.Anonymous, "/news", read},
	{session.Anonymous, "/news/:slug", read},
	{session.Anonymous, "/forum", read},
	{session.Anonymous, "/forum/category/:id", read},
	{session.Anonymous, "/forum/topic/:id", read},
	{session.Anonymous, "/rates", read},
	{session.Anonymous, "/search", read},
	{session.Anonymous, "/newsletter", "POST"},

	// Account flows.
	{session.Anonymous, "/login", write},
	{session.Anonymous, "/register", write},
	{session.Anonymous, "/forgot-password", write},
	{session.Anonymous, "/reset-password", write},
	{session.Anonymous, "/auth/oidc/*", read},

	// Signed-in users can post to the forum and sign out.
	{RoleUser, "/logout", write},
	{RoleUser, "/forum/category/:id/topics", "POST"},
	{RoleUser, "/forum/topic/:id/reply", "POST"},

	// Back office.
	{session.RoleAdmin, "/admin", write},
	{session.RoleAdmin, "/admin/*", write},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// admin -> user -> anonymous
	chain := [][2]string{{RoleUser, session.Anonymous}, {session.RoleAdmin, RoleUser}}
	for _, g := range chain {
		if has, _ := e.HasRoleForUser(g[0], g[1]); !has {
			if _, err := e.AddRoleForUser(g[0], g[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", g[0], g[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}

// EnsureUser gives a registered account the user role.
func EnsureUser(e casbin.IEnforcer, userID string) error {
	return grant(e, userID, RoleUser)
}

// GrantAdmin gives userID the admin role.
func GrantAdmin(e casbin.IEnforcer, userID string) error {
	return grant(e, userID, session.RoleAdmin)
}

// RevokeAdmin removes the admin role from userID.
func RevokeAdmin(e casbin.IEnforcer, userID string) error {
	if _, err := e.DeleteRoleForUser(userID, session.RoleAdmin); err != nil {
		return fmt.Errorf("failed to revoke admin from %s: %w", userID, err)
	}
	return nil
}

// RolesFor lists every role userID holds, directly or through inheritance.
func RolesFor(e casbin.IEnforcer, userID string) ([]string, error) {
	roles, err := e.GetImplicitRolesForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles for %s: %w", userID, err)
	}
	return roles, nil
}

func grant(e casbin.IEnforcer, userID, role string) error {
	if has, _ := e.HasRoleForUser(userID, role); has {
		return nil
	}
	if _, err := e.AddRoleForUser(userID, role); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", role, userID, err)
	}
	return nil
}
