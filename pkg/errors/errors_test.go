package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

func TestNew(t *testing.T) {
	ae := errors.New(errors.ErrCodePatternNotFound, "pattern 42 not found")

	require.NotNil(t, ae)
	assert.Equal(t, errors.ErrCodePatternNotFound, ae.Code)
	assert.Equal(t, "pattern 42 not found", ae.Message)
	assert.Nil(t, ae.Cause)
	assert.Contains(t, ae.Stack, "errors_test.go")
	assert.Equal(t, "[SER_004] pattern 42 not found", ae.Error())
}

func TestNewf(t *testing.T) {
	ae := errors.Newf(errors.ErrCodeCapacityExceeded, "range of %d exceeds %d", 200, 100)
	assert.Equal(t, "range of 200 exceeds 100", ae.Message)
	assert.Contains(t, ae.Stack, "errors_test.go")
}

func TestError_WithDetail(t *testing.T) {
	base := errors.Validation("step must be positive")
	withDetail := base.WithDetail("step=-1")

	assert.Equal(t, "[SER_001] step must be positive: step=-1", withDetail.Error())
	assert.Empty(t, base.Detail, "original must not change")

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

func TestWithCause_Copies(t *testing.T) {
	base := errors.New(errors.ErrCodeStorageError, "upload failed")
	cause := stderrors.New("connection reset")

	c := base.WithCause(cause)
	assert.Same(t, cause, c.Cause)
	assert.Nil(t, base.Cause)
	assert.True(t, stderrors.Is(c, cause))
}

func TestWrap(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.ErrCodeDatabaseError, "x"))
		assert.Nil(t, errors.Wrapf(nil, errors.ErrCodeDatabaseError, "x %d", 1))
	})

	t.Run("explicit code wins", func(t *testing.T) {
		inner := errors.New(errors.ErrCodePatternNotFound, "gone")
		outer := errors.Wrap(inner, errors.ErrCodeDatabaseError, "lookup failed")
		assert.Equal(t, errors.ErrCodeDatabaseError, outer.Code)
		assert.True(t, errors.IsCode(outer, errors.ErrCodePatternNotFound))
	})

	t.Run("unknown inherits", func(t *testing.T) {
		inner := fmt.Errorf("repo: %w", errors.New(errors.ErrCodePatternDuplicate, "dup"))
		outer := errors.Wrapf(inner, errors.CodeUnknown, "patterns[%d]", 3)
		assert.Equal(t, errors.ErrCodePatternDuplicate, outer.Code)
		assert.Equal(t, "patterns[3]", outer.Message)
		assert.Contains(t, outer.Stack, "errors_test.go")
	})

	t.Run("unknown over foreign error stays unknown", func(t *testing.T) {
		outer := errors.Wrap(stderrors.New("eof"), errors.CodeUnknown, "read")
		assert.Equal(t, errors.CodeUnknown, outer.Code)
	})
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errors.New(errors.ErrCodePatternNotFound, "x").HTTPStatus())
	assert.Equal(t, http.StatusConflict, errors.New(errors.ErrCodePatternDuplicate, "x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, errors.Validation("x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, errors.New(errors.ErrorCode("FOO_999"), "x").HTTPStatus())
}

func TestPredicates(t *testing.T) {
	wrapped := func(code errors.ErrorCode) error {
		return fmt.Errorf("outer: %w", errors.Wrap(stderrors.New("root"), code, "mid"))
	}

	tests := []struct {
		code                            errors.ErrorCode
		notFound, validation, conflict bool
	}{
		{errors.ErrCodeNotFound, true, false, false},
		{errors.ErrCodePatternNotFound, true, false, false},
		{errors.ErrCodeBadRequest, false, true, false},
		{errors.ErrCodeValidation, false, true, false},
		{errors.ErrCodeSerialValidation, false, true, false},
		{errors.ErrCodeCapacityExceeded, false, true, false},
		{errors.ErrCodePatternConfigInvalid, false, true, false},
		{errors.ErrCodeConflict, false, false, true},
		{errors.ErrCodePatternDuplicate, false, false, true},
		{errors.ErrCodeDatabaseError, false, false, false},
		{errors.ErrCodeExportFailed, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := wrapped(tt.code)
			assert.Equal(t, tt.notFound, errors.IsNotFound(err))
			assert.Equal(t, tt.validation, errors.IsValidation(err))
			assert.Equal(t, tt.conflict, errors.IsConflict(err))
		})
	}

	assert.False(t, errors.IsNotFound(nil))
	assert.False(t, errors.IsValidation(stderrors.New("plain")))
}

func TestFactories(t *testing.T) {
	assert.Equal(t, errors.ErrCodeNotFound, errors.NotFound("x").Code)
	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.ErrCodeSerialValidation, errors.Validation("x").Code)
	assert.Contains(t, errors.InvalidParam("x").Stack, "errors_test.go")
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))

	inner := errors.New(errors.ErrCodePatternNotFound, "gone")
	outer := fmt.Errorf("svc: %w", errors.Wrap(inner, errors.ErrCodeDatabaseError, "lookup"))
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(outer))
}

func TestStdlibInterop(t *testing.T) {
	root := errors.New(errors.ErrCodeStorageError, "minio unavailable")
	chain := fmt.Errorf("export service: %w", errors.Wrap(root, errors.ErrCodeExportFailed, "upload failed"))

	var ae *errors.AppError
	require.True(t, stderrors.As(chain, &ae))
	assert.Equal(t, errors.ErrCodeExportFailed, ae.Code)
	assert.True(t, stderrors.Is(chain, root))
}

//Personal.AI order the ending
