package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"mcsim/domain/core"
)

func TestWrap_ClassifiesDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{core.NewNotFoundError("run", "x"), CodeNotFound},
		{fmt.Errorf("compile: %w", core.ErrStackOverflow), CodeCapacityExceeded},
		{core.ErrStackUnderflow, CodeCompileError},
		{core.ErrUnknownFamily, CodeInvalidInput},
		{context.DeadlineExceeded, CodeCanceled},
		{fmt.Errorf("disk on fire"), CodeInternalError},
	}
	for _, tc := range cases {
		wrapped := Wrap(tc.err, "run failed")
		assert.Equal(t, tc.code, GetCode(wrapped), tc.err.Error())
		assert.ErrorIs(t, wrapped, tc.err)
	}
	assert.Nil(t, Wrap(nil, "x"))
}

func TestWrap_KeepsAppErrorCode(t *testing.T) {
	inner := ValidationError("lanes must be positive")
	outer := Wrapf(Wrap(inner, "request rejected"), "run %s", "abc")

	assert.Equal(t, CodeValidationError, GetCode(outer))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(outer))
	assert.Contains(t, outer.Error(), "lanes must be positive")
}

func TestCompileError_Code(t *testing.T) {
	assert.Equal(t, CodeCapacityExceeded, CompileError(core.ErrProgramTooLong).Code)
	assert.Equal(t, CodeCompileError, CompileError(fmt.Errorf("bad token")).Code)
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("plain")))
}
