package errordata

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrefersRecordedMessage(t *testing.T) {
	ctx := WithErrorData(context.Background())
	Set(ctx, http.StatusUnauthorized, "Invalid login credentials")

	status, msg := Resolve(ctx, errors.New("crypto/bcrypt: hashedPassword is not the hash"), http.StatusBadRequest)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid login credentials", msg)
}

func TestResolveFallsBackToError(t *testing.T) {
	status, msg := Resolve(context.Background(), errors.New("boom"), http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "boom", msg)

	ctx := WithErrorData(context.Background())
	status, msg = Resolve(ctx, nil, http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", msg)
}
