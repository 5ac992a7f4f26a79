package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrappedErrorsMatchBySentinel(t *testing.T) {
	err := ErrStoreUnavailable.WrapMsg("insert failed", "coll", "messages")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "insert failed")
	assert.Contains(t, err.Error(), "messages")
}

func TestCodeExtraction(t *testing.T) {
	assert.Equal(t, ErrNotFound.Code, Code(ErrNotFound.WrapMsg("row missing")))
	assert.Equal(t, ServerInternalError, Code(errors.New("plain")))
}

func TestWithDetailKeepsIdentity(t *testing.T) {
	err := ErrPermissionDenied.WithDetail("token expired")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Contains(t, err.Error(), "token expired")
}

func TestWrapMsgAnnotatesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := WrapMsg(cause, "publish", "subject", "yt.store.messages")
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "socket closed")
	assert.Contains(t, err.Error(), "subject=yt.store.messages")
}
