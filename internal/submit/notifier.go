package submit

import "time"

// Level is the kind of inline message shown next to the form.
type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// How long a notice stays before it dismisses itself.
const (
	NoticeTTL      = 8 * time.Second
	ErrorNoticeTTL = 10 * time.Second
)

// Notice is one dismissible message. A zero TTL keeps it until the next
// notice replaces it.
type Notice struct {
	Level Level
	Text  string
	TTL   time.Duration
}

// NewNotice returns a notice with the expiry for its level.
func NewNotice(level Level, text string) Notice {
	n := Notice{Level: level, Text: text}
	switch level {
	case LevelLoading:
	case LevelError:
		n.TTL = ErrorNoticeTTL
	default:
		n.TTL = NoticeTTL
	}
	return n
}

// Notifier renders notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
