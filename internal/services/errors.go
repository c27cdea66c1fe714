package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error taxonomy shared by the services. Callers branch on these with
// errors.Is / errors.As; handlers map them to HTTP status codes.
var (
	// ErrNotFound: the referenced playlist/section/placement/track/share
	// no longer exists (possibly deleted concurrently). Not retryable;
	// the caller should refresh its view.
	ErrNotFound = errors.New("not found")

	// ErrReferentialConflict: the storage layer rejected a write because
	// of an existing reference (dependency order violated). Not
	// retryable without fixing the order.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrShareExpired: a share link exists but its expiry has passed.
	ErrShareExpired = errors.New("share link expired")

	// ErrShareGate: the visitor has not passed the share link's access
	// gate (wrong password, missing email, missing session token).
	ErrShareGate = errors.New("share access denied")
)

// PartialFailureError reports a multi-step operation (duplication, cascade
// delete) that committed some steps and failed on a later one. Prior steps
// are not rolled back unless the surrounding transaction does so.
type PartialFailureError struct {
	Op   string
	Step string
	Err  error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: step %q failed: %v", e.Op, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// notFoundErr wraps ErrNotFound with the entity kind and id so handlers
// can render an actionable message.
func notFoundErr(kind string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, kind, id)
}

// translateDBErr maps storage errors onto the taxonomy. Foreign-key
// violations (SQLSTATE 23503) become ErrReferentialConflict; a missing
// row becomes ErrNotFound; anything else passes through as the transport
// failure it is.
func translateDBErr(err error, kind string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr(kind, id)
	}
	if strings.Contains(err.Error(), "23503") {
		return fmt.Errorf("%w: %s %v: %v", ErrReferentialConflict, kind, id, err)
	}
	return err
}
