package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAndKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("placing order: %w", InsufficientStock("Phone Case"))

	assert.True(t, Is(err, CodeInsufficientStock))
	assert.False(t, Is(err, CodeMissingCart))
	assert.Equal(t, KindInsufficientResource, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "Insufficient stock for: Phone Case", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestCopiesDoNotMutateOriginal(t *testing.T) {
	base := State(CodeCouponInactive, "Coupon is inactive")
	flagged := base.WithAutoRemove().WithStatus(http.StatusTeapot)

	assert.False(t, base.AutoRemove)
	assert.Equal(t, http.StatusBadRequest, base.Status)
	assert.True(t, flagged.AutoRemove)
	assert.Equal(t, http.StatusTeapot, flagged.Status)
}
