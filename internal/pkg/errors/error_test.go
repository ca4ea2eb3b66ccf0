package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublic(t *testing.T) {
	assert.Nil(t, Public(nil))

	invalid := fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	assert.Equal(t, invalid, Public(invalid))

	wrapped := fmt.Errorf("failed to delete offer: %w", ErrOfferInUse)
	assert.Equal(t, ErrOfferInUse, Public(wrapped))

	driver := fmt.Errorf("failed to look up offer: %w", errors.New(`relation "promotional_offers" does not exist`))
	assert.Equal(t, ErrInternal, Public(driver))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("offer 7: %w", ErrNotFound)
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
}
