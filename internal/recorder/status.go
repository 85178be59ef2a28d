package recorder

// StatusLevel classifies a user-facing status message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// String returns the level name for logging.
func (l StatusLevel) String() string {
	switch l {
	case StatusInfo:
		return "info"
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusSink receives user-facing status updates. Info, success, and warning
// messages are transient; error messages persist until the next action.
type StatusSink interface {
	Publish(level StatusLevel, message string)
}

// NopStatusSink discards all statuses, for tests and headless use.
type NopStatusSink struct{}

func (NopStatusSink) Publish(StatusLevel, string) {}

// ErrorStatus formats an error for display. All error statuses use this
// shape so they are recognizable regardless of which phase failed.
func ErrorStatus(msg string) string {
	return "Error: " + msg
}
