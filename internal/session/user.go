package session

import "context"

// RoleAdmin is the casbin role that unlocks the back office.
const RoleAdmin = "admin"

// Anonymous is the casbin subject used for visitors without a session.
const Anonymous = "anonymous"

type contextKey string

const userContextKey = contextKey("user")

// UserInfo is the signed-in principal as seen by handlers and templates.
type UserInfo struct {
	ID          string
	Email       string
	DisplayName string
	Roles       []string
}

// IsAnonymous reports whether nobody is signed in.
func (u *UserInfo) IsAnonymous() bool {
	return u == nil || u.ID == ""
}

// IsAdmin reports whether the user holds the admin role.
func (u *UserInfo) IsAdmin() bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Subject is the casbin subject for the user.
func (u *UserInfo) Subject() string {
	if u.IsAnonymous() {
		return Anonymous
	}
	return u.ID
}

// Name is the label shown next to the user's posts.
func (u *UserInfo) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
