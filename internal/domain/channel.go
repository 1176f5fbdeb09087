package domain

import "time"

type Video struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	ThumbnailURL    string
	VideoURL        string
	DurationSeconds int
	Views           int64
	IsPublished     bool
	CreatedAt       time.Time
}

type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// ChannelProfile is the public view of a user's channel.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullname"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type VideoOwner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one watch-history entry.
type WatchedVideo struct {
	ID              string     `json:"_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ThumbnailURL    string     `json:"thumbnail"`
	VideoURL        string     `json:"videoFile"`
	DurationSeconds int        `json:"duration"`
	Views           int64      `json:"views"`
	Owner           VideoOwner `json:"owner"`
	WatchedAt       time.Time  `json:"watchedAt"`
}
