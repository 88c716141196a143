package errors

import (
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"testing"

	"surveystats/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestGetCode_DomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{core.NewMissingColumnError("w"), CodeMissingColumn},
		{core.NewEmptyGroupError("x", "north"), CodeEmptyGroup},
		{core.NewZeroBaseError("row", "A"), CodeZeroNormBase},
		{fmt.Errorf("wrap: %w", core.ErrInvalidLevel), CodeInvalidLevel},
		{core.ErrRunNotFound, CodeNotFound},
		{core.NewNonFiniteError("w", 2, math.Inf(1)), CodeNonFinite},
		{stderrors.New("boom"), CodeInternalError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GetCode(tc.err), tc.err.Error())
	}
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(core.NewMissingColumnError("weight"), "aggregate national estimates")
	assert.Equal(t, CodeMissingColumn, GetCode(err))
	assert.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Equal(t, `aggregate national estimates: missing column: "weight"`, err.Error())

	again := Wrapf(err, "step %d", 2)
	assert.Equal(t, CodeMissingColumn, GetCode(again))

	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatabaseError, stderrors.New("disk full"))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.False(t, IsAppError(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeMissingColumn))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidLevel))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeNonFinite))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(CodeEmptyGroup))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeInternalError))
}

func TestFromDomain(t *testing.T) {
	assert.Nil(t, FromDomain(nil))

	err := FromDomain(core.NewMissingColumnError("weight"))
	var appErr *AppError
	assert.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, CodeMissingColumn, appErr.Code)
	assert.True(t, stderrors.Is(err, core.ErrMissingColumn))

	orig := InvalidInput("bad")
	assert.Same(t, orig, FromDomain(orig))
}
