package sink

import "fmt"

// DeliveryError reports a message the remote side did not accept.
// Status is 0 when no HTTP response was received.
type DeliveryError struct {
	Sink    string
	EventID int64
	Status  int
	Body    string
	Err     error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("%s: deliver event %d: %v", e.Sink, e.EventID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: deliver event %d: status %d: %v", e.Sink, e.EventID, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s: deliver event %d: status %d: %s", e.Sink, e.EventID, e.Status, e.Body)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }
