package models

import "time"

// User represents a user profile stored in the users collection.
// New documents use the auth UID as the document ID; legacy documents
// have auto-generated IDs and are located through the uid field.
type User struct {
	ID           string    `json:"id" firestore:"-"`
	UID          string    `json:"uid" firestore:"uid"`
	Email        string    `json:"email" firestore:"email"`
	Username     string    `json:"username,omitempty" firestore:"username,omitempty"`
	DisplayName  string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Coins        int64     `json:"coins" firestore:"coins"`
	ProfileImage string    `json:"profileImage,omitempty" firestore:"ProfileImage,omitempty"` // base64
	Subscribed   int       `json:"subscribed" firestore:"subscribed"`                         // 0 or 1
	PushToken    string    `json:"-" firestore:"pushToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// UserFromDocument decodes a users document. The profile image falls back
// to the image and picture fields used by earlier app versions.
func UserFromDocument(doc map[string]interface{}) *User {
	if doc == nil {
		return nil
	}
	u := &User{
		ID:           stringField(doc, "id"),
		UID:          stringField(doc, "uid"),
		Email:        stringField(doc, "email"),
		Username:     stringField(doc, "username"),
		DisplayName:  stringField(doc, "displayName"),
		Coins:        int64Field(doc, "coins"),
		ProfileImage: stringField(doc, "ProfileImage"),
		Subscribed:   int(int64Field(doc, "subscribed")),
		PushToken:    stringField(doc, "pushToken"),
		CreatedAt:    timeField(doc, "createdAt"),
		UpdatedAt:    timeField(doc, "updatedAt"),
	}
	if u.UID == "" {
		u.UID = u.ID
	}
	if u.ProfileImage == "" {
		u.ProfileImage = stringField(doc, "image")
	}
	if u.ProfileImage == "" {
		u.ProfileImage = stringField(doc, "picture")
	}
	if u.Coins < 0 {
		u.Coins = 0
	}
	return u
}

// ToMap returns the fields written when the user document is created.
// Timestamps are left to the backend layer.
func (u *User) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"uid":        u.UID,
		"email":      u.Email,
		"coins":      u.Coins,
		"subscribed": u.Subscribed,
	}
	if u.Username != "" {
		m["username"] = u.Username
	}
	if u.DisplayName != "" {
		m["displayName"] = u.DisplayName
	}
	if u.ProfileImage != "" {
		m["ProfileImage"] = u.ProfileImage
	}
	if u.PushToken != "" {
		m["pushToken"] = u.PushToken
	}
	return m
}

// PublicProfile is what other users may see about a user.
type PublicProfile struct {
	UID          string `json:"uid"`
	Username     string `json:"username,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		UID:          u.UID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		ProfileImage: u.ProfileImage,
	}
}
