package domain

import "time"

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVideo
}

type TextStyle struct {
	Color string `json:"color,omitempty"`
	Size  string `json:"fontSize,omitempty"`
	Align string `json:"textAlign,omitempty"`
}

// Story is an ephemeral media item as delivered by the listing endpoint.
type Story struct {
	ID         string    `json:"_id"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	MediaURL   string    `json:"mediaUrl"`
	MediaKind  MediaKind `json:"mediaType"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	TextStyle  TextStyle `json:"textStyle"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (s Story) IsVideo() bool {
	return s.MediaKind == MediaVideo
}
