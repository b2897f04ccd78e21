package port

import (
	"context"
	"errors"
	"fmt"
)

// Transport is the opaque outbound send channel. Implementations impose no
// timeout of their own; the caller bounds every send through ctx.
type Transport interface {
	Send(ctx context.Context, token string, telegramID int64, message string) error
}

// SendError classifies a transport failure. Permanent failures (invalid
// recipient, revoked token) must not be retried; everything else is
// considered transient.
type SendError struct {
	Err       error
	Permanent bool
}

func (e *SendError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent send failure: %v", e.Err)
	}
	return fmt.Sprintf("retryable send failure: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// PermanentSendError wraps err as a non-retryable transport failure.
func PermanentSendError(err error) error {
	return &SendError{Err: err, Permanent: true}
}

// RetryableSendError wraps err as a transient transport failure.
func RetryableSendError(err error) error {
	return &SendError{Err: err, Permanent: false}
}

// IsPermanentSendError reports whether err is classified permanent. Errors
// without a SendError in their chain (timeouts, network resets) are treated
// as retryable.
func IsPermanentSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent
}
