package domain

const (
	RoleMember = "Member"
	RoleAdmin  = "Admin"
)

type User struct {
	ID           int64    `bson:"_id" json:"id"`
	UserName     string   `bson:"userName" json:"userName"`
	Email        string   `bson:"email" json:"email"`
	PasswordHash string   `bson:"passwordHash" json:"-"`
	Roles        []string `bson:"roles" json:"roles"`
	Address      *Address `bson:"address,omitempty" json:"address,omitempty"`
}

// HasRole reports whether the user carries role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
