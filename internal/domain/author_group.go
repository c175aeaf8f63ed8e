package domain

// AuthorGroup is every story of one owner in listing order. It is derived on
// read and never stored.
type AuthorGroup struct {
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName"`
	UserAvatar string  `json:"userAvatar,omitempty"`
	Stories    []Story `json:"stories"`
}
