package mosaic

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/maxhully/mosaic/avatargen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUserPage struct {
	User      *User
	Queued    bool
	CSRFField template.HTML
}

func TestRenderer(t *testing.T) {
	renderer, err := NewRenderer(avatargen.DefaultConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	page := testUserPage{User: &User{UserID: 1, Name: "max", AvatarUploadID: 3}}
	require.NoError(t, renderer.ExecuteTemplate(&buf, "user.html", page))
	body := buf.String()
	assert.Contains(t, body, "<title>max · mosaic</title>")
	assert.Contains(t, body, `src="/uploads/3.png"`)
	assert.Contains(t, body, `width="252" height="252"`)
	assert.NotContains(t, body, "on its way")
}

func TestRendererUnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer(avatargen.DefaultConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = renderer.ExecuteTemplate(&buf, "missing.html", nil)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestRendererDoesNotWritePartialPages(t *testing.T) {
	renderer, err := NewRenderer(avatargen.DefaultConfig())
	require.NoError(t, err)

	// .User.Name on a nil *User fails halfway through the page.
	var buf bytes.Buffer
	err = renderer.ExecuteTemplate(&buf, "user.html", testUserPage{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
