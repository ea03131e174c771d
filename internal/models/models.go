package models

import "time"

// Actor identifies the authenticated caller of an operation. It is passed
// explicitly into every core operation that acts on behalf of someone.
type Actor struct {
	UserID string
}

// User is an account identity. PasswordHash, VerificationToken and
// RefreshToken never leave the service; use Redacted before returning a User
// to a caller.
type User struct {
	ID                string
	Handle            string
	Email             string
	FullName          string
	PasswordHash      string
	AvatarURL         string
	AvatarPublicID    string
	CoverURL          string
	CoverPublicID     string
	WatchHistory      []string
	EmailVerified     bool
	VerificationToken string
	RefreshToken      string
	ProfileCompleted  bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Redacted returns a copy of u without credential material.
func (u User) Redacted() User {
	u.PasswordHash = ""
	u.VerificationToken = ""
	u.RefreshToken = ""
	if u.WatchHistory != nil {
		u.WatchHistory = append([]string(nil), u.WatchHistory...)
	}
	return u
}

// Video is an uploaded video. Uploading and transcoding happen elsewhere; the
// core only reads videos.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	VideoURL    string
	Thumbnail   string
	Duration    float64
	Views       int64
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a remark left on a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tweet is a short text post owned by a channel.
type Tweet struct {
	ID        string
	OwnerID   string
	Content   string
	CreatedAt time.Time
}

// Like records that LikedBy likes exactly one target.
type Like struct {
	ID        string
	LikedBy   string
	Target    LikeTarget
	CreatedAt time.Time
}

// Playlist is an ordered, duplicate-free list of videos.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	VideoIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Subscription records SubscriberID following ChannelID.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// SessionTokens represents the credentials returned to a client after login or refresh.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// AssetRef locates a stored asset. PublicID is the handle used to remove it.
type AssetRef struct {
	URL      string
	PublicID string
}
