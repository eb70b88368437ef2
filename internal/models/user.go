package models

// User is the locally cached profile of the signed-in user.
type User struct {
	ID               int64  `json:"id"`
	PhoneNumber      string `json:"phoneNumber"`
	Nickname         string `json:"nickname"`
	ProfileImage     string `json:"profileImage,omitempty"`
	Level            int    `json:"level"`
	ExperiencePoints int    `json:"experiencePoints"`
	CreatedAt        string `json:"createdAt,omitempty"`
}
