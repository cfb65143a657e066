package wire

import (
	"errors"
	"fmt"
)

// ProtocolError reports a malformed or disallowed HTTP/1.1 message. It
// mirrors the original's HttpError(status, reason) shape (see
// original_source/lib/royalbed/common/http-error.h): a status code the
// caller can send back, plus a human-readable reason.
type ProtocolError struct {
	Status int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, StatusText(e.Status), e.Reason)
}

func newProtocolError(status int, reason string) error {
	return &ProtocolError{Status: status, Reason: reason}
}

// ErrCancelled is returned by operations aborted via context cancellation.
// It plays the role the original's nhope::AsyncOperationWasCancelled plays
// in the C++ implementation, mapped onto Go's context idiom.
var ErrCancelled = errors.New("wire: operation cancelled")

// ErrHeaderTooLong names a start-line + header block that exceeds the
// parser's configured buffer without completing. Parser reports that case
// as a *ProtocolError with status 431 and does not return this value.
var ErrHeaderTooLong = errors.New("wire: header block too long")

// ErrNoHost names a request that has no Host header and no host in its
// URI. WriteRequest does not return it: such a request is written without
// a Host header.
var ErrNoHost = errors.New("wire: no Host header and no host in URI")
