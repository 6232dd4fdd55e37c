package usecase

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = fmt.Errorf("chat use case persistence error")

// ErrUpstream indicates the BSP failed or could not be reached
var ErrUpstream = fmt.Errorf("chat use case upstream error")

// ErrUpstreamAuth indicates the BSP rejected the credential
var ErrUpstreamAuth = fmt.Errorf("chat use case upstream auth error")

// SentNotRecordedError reports a message the BSP accepted whose local write
// failed afterwards. ExternalID is the BSP's id for the delivered message.
type SentNotRecordedError struct {
	ExternalID string
	Err        error
}

func (e *SentNotRecordedError) Error() string {
	return fmt.Sprintf("sent as %s but not recorded: %v", e.ExternalID, e.Err)
}

func (e *SentNotRecordedError) Unwrap() error { return e.Err }
