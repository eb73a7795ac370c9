package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPasswordResetHTML(t *testing.T) {
	out, err := RenderPasswordResetHTML(PasswordResetEmailData{
		Name:      "Nadia",
		ResetLink: "https://aristo.app/reset?code=abc",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Nadia,")
	assert.Contains(t, out, `href="https://aristo.app/reset?code=abc"`)
	assert.Contains(t, out, "expires in 60 minutes")

	out, err = RenderPasswordResetHTML(PasswordResetEmailData{ResetLink: "x"})
	require.NoError(t, err)
	assert.Contains(t, out, "Hello Scholar,")
}
