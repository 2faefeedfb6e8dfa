package users

import "time"

type Role string

const (
	RolePurchasingManager Role = "purchasing_manager"
	RoleProductionManager Role = "production_manager"
	RoleQualityManager    Role = "quality_manager"
	RoleReceptionManager  Role = "reception_manager"
	RoleDirector          Role = "director"
)

type User struct {
	ID         int64
	Name       string
	Email      string
	TelegramID int64
	Enabled    bool
	Roles      []Role
	CreatedAt  time.Time
}

func (u User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Emails returns the distinct non-empty addresses of us, skipping excluded
// user names (system accounts).
func Emails(us []User, exclude ...string) []string {
	skip := map[string]bool{}
	for _, e := range exclude {
		skip[e] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, u := range us {
		if skip[u.Name] || u.Email == "" || seen[u.Email] {
			continue
		}
		seen[u.Email] = true
		out = append(out, u.Email)
	}
	return out
}

func (u User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}
