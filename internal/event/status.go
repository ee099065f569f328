package event

// Status is the lifecycle state reported by the provider for an event.
// Values outside the known set map to StatusUnknown; the raw string is kept on
// the Record.
type Status int

const (
	StatusUnknown Status = iota
	StatusStarted
	StatusFailed
	StatusFinished
	StatusScheduled
	StatusNotification
)

var statusNames = map[Status]string{
	StatusStarted:      "started",
	StatusFailed:       "failed",
	StatusFinished:     "finished",
	StatusScheduled:    "scheduled",
	StatusNotification: "notification",
}

// ParseStatus maps a wire value to a Status. Matching is exact; anything
// else, including other casings, is StatusUnknown.
func ParseStatus(raw string) Status {
	switch raw {
	case "started":
		return StatusStarted
	case "failed":
		return StatusFailed
	case "finished":
		return StatusFinished
	case "scheduled":
		return StatusScheduled
	case "notification":
		return StatusNotification
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Known reports whether s is one of the documented statuses.
func (s Status) Known() bool { return s != StatusUnknown }
