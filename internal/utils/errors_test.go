package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := &Error{Kind: KindStorageFailure, Message: "insert prediction"}
	assert.Equal(t, "insert prediction", err.Error())

	wrapped := Wrap(KindStorageFailure, errors.New("connection reset"), "insert prediction")
	assert.Equal(t, "insert prediction: connection reset", wrapped.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("validation failed")

	assert.Error(t, err)
	assert.Equal(t, "validation failed", err.Error())
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("validation failed for field %s with value %d", "confidence_level", 11)

	assert.Equal(t, "validation failed for field confidence_level with value 11", err.Error())
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestError_IsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrInvalidConfidence)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
	assert.NotErrorIs(t, err, ErrContestClosed)

	plain := NewValidationError("bad direction")
	assert.NotErrorIs(t, plain, ErrInvalidConfidence)
	assert.Equal(t, "invalid_confidence", CodeOf(err))
}

func TestWithCode(t *testing.T) {
	err := ErrStorageFailure.WithCode("resolution_in_progress")

	assert.Equal(t, "resolution_in_progress", err.Code)
	assert.Empty(t, ErrStorageFailure.Code)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestKindOf_UnknownError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Wrap(KindUpstreamUnavailable, errors.New("timeout"), "fetch quote")))
	assert.False(t, IsRetryable(ErrStorageFailure))
	assert.False(t, IsRetryable(ErrContestClosed))
	assert.False(t, IsRetryable(errors.New("plain")))
}
