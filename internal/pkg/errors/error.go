package xerrors

import "errors"

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrRateLimited    = errors.New("rate limit exceeded")

	// Ledger
	ErrUsageLimitReached   = errors.New("offer usage limit reached")
	ErrPerUserLimitReached = errors.New("per-user usage limit reached")
	ErrOfferInUse          = errors.New("offer has already been redeemed")
	ErrOfferUnavailable    = errors.New("offer is no longer redeemable")

	// Sweep
	ErrSweepLocked = errors.New("sweep already running elsewhere")
)

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Public returns the error text that is safe to show to API clients. Only
// sentinel errors from this package (and anything wrapping ErrInvalidInput)
// are passed through; everything else collapses to ErrInternal.
func Public(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	for _, known := range []error{
		ErrNotFound, ErrUnauthorized, ErrForbidden, ErrConflict, ErrBadRequest,
		ErrDuplicateEntry, ErrUsageLimitReached, ErrPerUserLimitReached,
		ErrOfferInUse, ErrOfferUnavailable, ErrSweepLocked, ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return known
		}
	}
	return ErrInternal
}
