package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeNotFound, "database missing")
	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeNotFound, err.Type)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "not_found: database missing", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Wrap(cause, ErrorTypeConnection, "failed to connect")

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.True(t, IsType(err, ErrorTypeConnection))
}

func TestWrapNilReturnsNil(t *testing.T) {
	var err *Error = Wrap(nil, ErrorTypeQuery, "ignored")
	assert.Nil(t, err)
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeAlreadyExists, "table present")
	outer := fmt.Errorf("import failed: %w", inner)

	assert.True(t, IsType(outer, ErrorTypeAlreadyExists))
	assert.False(t, IsType(outer, ErrorTypeNotFound))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeAlreadyExists))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeSchemaMismatch, "column sets differ").
		WithDetail("table", "stations").
		WithDetail("missing", []string{"easting"})

	assert.Equal(t, "stations", err.Details["table"])
	assert.Len(t, err.Details, 2)
}
