package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("withdrawal %s not found", "w1")
	wrapped := Wrap(base, "approve failed")

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "withdrawal w1 not found")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(errors.New("disk full"), "save failed")
	assert.Equal(t, CodeInternal, CodeOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(wrapped))
	assert.Equal(t, "internal server error", PublicMessage(wrapped))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		NotFound("x"):                   http.StatusNotFound,
		InvalidState("x"):               http.StatusConflict,
		Validation("x"):                 http.StatusBadRequest,
		InsufficientBalance("x"):        http.StatusBadRequest,
		InsufficientPendingBalance("x"): http.StatusBadRequest,
		Upstream(nil, "x"):              http.StatusBadGateway,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Code())
	}
}

func TestToGRPC(t *testing.T) {
	st, ok := status.FromError(ToGRPC(InvalidState("Cannot approve withdrawal with status: completed")))
	assert.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Equal(t, "Cannot approve withdrawal with status: completed", st.Message())
	assert.Nil(t, ToGRPC(nil))
}
