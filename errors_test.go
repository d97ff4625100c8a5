package securebridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesOnlyItsSentinel(t *testing.T) {
	for _, kind := range Kinds() {
		err := newError(kind, "boom", nil)
		for other, sentinel := range sentinels {
			assert.Equal(t, other == kind, errors.Is(err, sentinel), "kind %s vs %s", kind, other)
		}
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := newError(KindTimeout, "request timed out", context.DeadlineExceeded)
	wrapped := fmt.Errorf("loading patients: %w", err)

	assert.ErrorIs(t, wrapped, ErrTimeout)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, got.Kind)
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestErrorMessageIsSanitized(t *testing.T) {
	err := newStatusError(KindServerError, 500, `<script>steal()</script>Database <b>down</b>`)
	assert.Equal(t, "Database down", err.Message)
	assert.Equal(t, "server_error (500): Database down", err.Error())
}

func TestValidationErrorSanitizesFields(t *testing.T) {
	err := newValidationError("invalid", []FieldError{{Field: "name", Tag: "min", Message: "<i>too short</i>"}}, nil)
	assert.Equal(t, "too short", err.Fields[0].Message)
	assert.ErrorIs(t, err, ErrValidation)
}
