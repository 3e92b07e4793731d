package model

import "time"

// Profile is the provisioning record written on sign-in. Handle doubles as the
// public URL segment and the username stamped onto every post.
type Profile struct {
	Handle      string    `json:"handle"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
