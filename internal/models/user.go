package models

// User is a plant account. Role is one of the identity roles.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:16;index;not null" json:"role"`
	Name         string `gorm:"size:128" json:"name"`
	Department   string `gorm:"size:64" json:"department"`
	CreatedBy    string `gorm:"size:64" json:"created_by,omitempty"`
	CreatedAt    int64  `gorm:"autoCreateTime" json:"created_at"`
}

// DisplayName returns the user's name, falling back to the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
