package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginComponent(t *testing.T) {
	var buf bytes.Buffer

	err := Login().Render(context.Background(), &buf)

	assert.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "Welcome to Huddle!")
	assert.Contains(t, html, "<form")
	assert.Contains(t, html, `hx-post="/account/login"`)
	assert.Contains(t, html, `name="email"`)
	assert.Contains(t, html, `name="password"`)
	assert.Contains(t, html, `type="submit"`)
	assert.Contains(t, html, "Sign In")
	assert.Contains(t, html, `hx-get="/account/signup"`)
	assert.Contains(t, html, "Sign up")
}

func TestSignupComponent(t *testing.T) {
	var buf bytes.Buffer

	err := Signup().Render(context.Background(), &buf)

	assert.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "Create your account")
	assert.Contains(t, html, `hx-post="/account/signup"`)
	assert.Contains(t, html, `name="username"`)
	assert.Contains(t, html, `name="email"`)
	assert.Contains(t, html, `name="password"`)
	assert.Contains(t, html, `name="confirm_password"`)
	assert.Contains(t, html, "Create account")
	assert.Contains(t, html, `hx-get="/account/login"`)
	assert.Contains(t, html, "Sign in")
}

func TestErrorMsgEscapes(t *testing.T) {
	var buf bytes.Buffer

	err := ErrorMsg(`<b>email</b> in use`).Render(context.Background(), &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "&lt;b&gt;email&lt;/b&gt; in use")
	assert.NotContains(t, buf.String(), "<b>")
}
