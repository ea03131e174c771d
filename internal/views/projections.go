package views

import (
	"time"

	"github.com/videocave/backend/internal/models"
)

// OwnerSummary is the public projection of an identity embedded in other views.
type OwnerSummary struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// VideoSummary is a video together with its owner's public projection.
type VideoSummary struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Thumbnail   string        `json:"thumbnail"`
	VideoURL    string        `json:"videoFile"`
	Duration    float64       `json:"duration"`
	Views       int64         `json:"views"`
	IsPublished bool          `json:"isPublished"`
	CreatedAt   time.Time     `json:"createdAt"`
	Owner       *OwnerSummary `json:"owner,omitempty"`
}

// ChannelProfile is a channel as seen by a particular viewer.
type ChannelProfile struct {
	ID                string `json:"id"`
	Handle            string `json:"handle"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverURL          string `json:"coverImage"`
	SubscriberCount   int    `json:"subscribersCount"`
	SubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// PlaylistDetail is a playlist with its videos resolved in stored order.
type PlaylistDetail struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	OwnerID     string         `json:"ownerId"`
	Videos      []VideoSummary `json:"videos"`
	VideoCount  int            `json:"totalVideos"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// PlaylistName is the minimal playlist projection used by pickers.
type PlaylistName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistMembership tells whether a playlist already holds a given video.
type PlaylistMembership struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	VideoCount    int    `json:"totalVideos"`
	ContainsVideo bool   `json:"containsVideo"`
}

// LikedVideo is a liked video and when the like was recorded.
type LikedVideo struct {
	LikedAt time.Time    `json:"likedAt"`
	Video   VideoSummary `json:"video"`
}

// SummarizeOwner projects an identity to its public fields.
func SummarizeOwner(u models.User) OwnerSummary {
	return OwnerSummary{
		ID:        u.ID,
		Handle:    u.Handle,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

func videoSummary(v models.Video, owners map[string]models.User) VideoSummary {
	summary := VideoSummary{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Thumbnail:   v.Thumbnail,
		VideoURL:    v.VideoURL,
		Duration:    v.Duration,
		Views:       v.Views,
		IsPublished: v.IsPublished,
		CreatedAt:   v.CreatedAt,
	}
	if owner, ok := owners[v.OwnerID]; ok {
		o := SummarizeOwner(owner)
		summary.Owner = &o
	}
	return summary
}
