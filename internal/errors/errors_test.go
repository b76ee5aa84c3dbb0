package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/obsctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Invalid interval value", errFactory.New(errors.ErrInvalidInterval).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Failed to fetch weather: boom",
		errFactory.Wrap(errors.ErrWeatherFetch, stderrors.New("boom")).Error())
	assert.Equal(t, "unregistered_code", errFactory.New("unregistered_code").Error())
}

func TestWithDataKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.New().Wrap(errors.ErrSourceFetch, cause).WithData("mount")

	assert.Equal(t, "Failed to fetch telemetry source: mount: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "mount", err.GetData())
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrUnreachable)
	outer := errors.New().Wrap(errors.ErrSourceFetch, inner)
	wrapped := fmt.Errorf("tick: %w", outer)

	assert.True(t, errors.HasCode(wrapped, errors.ErrSourceFetch))
	assert.True(t, errors.HasCode(wrapped, errors.ErrUnreachable))
	assert.False(t, errors.HasCode(wrapped, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}
