package viewer

type EventType string

const (
	EventCursor EventType = "cursor"
	EventMedia  EventType = "media"
	EventNotice EventType = "notice"
)

type MediaAction string

const (
	MediaPlay  MediaAction = "play"
	MediaPause MediaAction = "pause"
)

type MediaEvent struct {
	Action  MediaAction `json:"action"`
	StoryID string      `json:"storyId"`
}

// Event is one message on a session subscription.
type Event struct {
	Type   EventType   `json:"type"`
	Cursor *Cursor     `json:"cursor,omitempty"`
	Media  *MediaEvent `json:"media,omitempty"`
	Notice string      `json:"notice,omitempty"`
}
