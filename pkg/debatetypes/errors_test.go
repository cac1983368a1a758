package debatetypes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	bare := &FormatError{Reason: "missing version tag"}
	assert.Equal(t, "invalid state document: missing version tag", bare.Error())
	assert.Nil(t, bare.Unwrap())

	cause := errors.New("unexpected end of JSON input")
	wrapped := &FormatError{Reason: "not a JSON object", Err: cause}
	assert.Contains(t, wrapped.Error(), "not a JSON object")
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsFormatError(t *testing.T) {
	assert.True(t, IsFormatError(&FormatError{Reason: "x"}))
	assert.True(t, IsFormatError(fmt.Errorf("load failed: %w", &FormatError{Reason: "x"})))
	assert.False(t, IsFormatError(errors.New("something else")))
	assert.False(t, IsFormatError(ErrBusy))
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("rate limited")
	err := &GenerationError{TurnIndex: 3, Err: cause}

	assert.Equal(t, "generation failed at turn 3: rate limited", err.Error())
	assert.ErrorIs(t, err, cause)

	var genErr *GenerationError
	assert.ErrorAs(t, fmt.Errorf("sequence halted: %w", err), &genErr)
	assert.Equal(t, 3, genErr.TurnIndex)
}

func TestGenerationError_WrapsCancellation(t *testing.T) {
	cancelled := &GenerationError{TurnIndex: 2, Err: context.Canceled}
	assert.ErrorIs(t, cancelled, context.Canceled)
	assert.NotErrorIs(t, cancelled, ErrBusy)
}
