package domscan

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Sign in</title><script>var x=1;</script></head>
<body>
  <h1>Welcome back</h1>
  <form id="login" action="/login" method="post">
    <label for="user">Username</label>
    <input id="user" name="username" type="text" placeholder="your name">
    <label>Password <input name="password" type="password"></label>
    <input type="hidden" name="csrf" value="tok">
    <button type="submit">Sign in</button>
  </form>
  <a href="/forgot">Forgot password?</a>
  <a href="javascript:void(0)">noop</a>
  <div role="button" aria-label="Open menu">☰</div>
</body></html>`

func TestScan_LoginPage(t *testing.T) {
	snap, err := Scan(loginPage)
	require.NoError(t, err)

	require.Len(t, snap.Forms, 1)
	form := snap.Forms[0]
	assert.Equal(t, "#login", form.Selector)
	assert.Equal(t, "/login", form.Action)
	assert.Equal(t, "POST", form.Method)
	require.Len(t, form.Fields, 2)

	assert.Equal(t, "#user", form.Fields[0].Selector)
	assert.Equal(t, "username", form.Fields[0].Name)
	assert.Equal(t, "Username", form.Fields[0].Label)
	assert.Equal(t, "your name", form.Fields[0].Placeholder)

	assert.Equal(t, `input[name="password"]`, form.Fields[1].Selector)
	assert.Equal(t, "password", form.Fields[1].Type)
	assert.Contains(t, form.Fields[1].Label, "Password")

	assert.NotEmpty(t, form.SubmitSelector)

	assert.Equal(t, []string{"Welcome back"}, snap.Headings)
	require.Len(t, snap.Links, 1)
	assert.Equal(t, "/forgot", snap.Links[0].Href)

	require.NotEmpty(t, snap.LoginHints)
	assert.Contains(t, snap.LoginHints[0], "password field")
}

func TestScan_HiddenAndDisabledFieldsSkipped(t *testing.T) {
	page := `<html><body><form id="f">
		<input type="hidden" name="csrf">
		<input type="text" name="city" disabled>
		<input type="text" name="street">
	</form></body></html>`

	snap, err := Scan(page)
	require.NoError(t, err)
	require.Len(t, snap.Forms, 1)
	require.Len(t, snap.Forms[0].Fields, 1)
	assert.Equal(t, "street", snap.Forms[0].Fields[0].Name)
}

func TestScan_CapsEnforced(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < MaxLinks+20; i++ {
		fmt.Fprintf(&sb, `<a href="/p/%d">link %d</a>`, i, i)
	}
	for i := 0; i < MaxHeadings+5; i++ {
		fmt.Fprintf(&sb, "<h2>Heading %d</h2>", i)
	}
	for i := 0; i < MaxButtons+5; i++ {
		fmt.Fprintf(&sb, "<button>btn %d</button>", i)
	}
	sb.WriteString("</body></html>")

	snap, err := Scan(sb.String())
	require.NoError(t, err)
	assert.Len(t, snap.Links, MaxLinks)
	assert.Len(t, snap.Headings, MaxHeadings)
	assert.Len(t, snap.Buttons, MaxButtons)
}

func TestFields_DocumentOrderOutsideForms(t *testing.T) {
	page := `<html><body>
		<input type="search" name="q" aria-label="Search">
		<form><textarea name="bio"></textarea></form>
		<select name="country"><option>a</option></select>
	</body></html>`

	fields, err := Fields(page)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "q", fields[0].Name)
	assert.Equal(t, 0, fields[0].Order)
	assert.Equal(t, "bio", fields[1].Name)
	assert.Equal(t, "country", fields[2].Name)
	assert.Equal(t, 2, fields[2].Order)
}

func TestClickables_RolesAndSubmitInputs(t *testing.T) {
	page := `<html><body>
		<button>One</button>
		<a href="/two">Two</a>
		<input type="submit" value="Three">
		<div role="button">Four</div>
		<div>not clickable</div>
	</body></html>`

	targets, err := Clickables(page)
	require.NoError(t, err)
	require.Len(t, targets, 4)
	assert.Equal(t, "One", targets[0].Text)
	assert.Equal(t, "/two", targets[1].Href)
	assert.Equal(t, "Three", targets[2].Text)
	assert.Equal(t, "button", targets[3].Role)
}

func TestVisibleText_SkipsScriptsAndCollapses(t *testing.T) {
	page := `<html><head><script>ignore()</script><style>.x{}</style></head>
	<body><p>Hello   world</p><div>second   line</div></body></html>`

	text, err := VisibleText(page, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello world second line", text)

	short, err := VisibleText(page, 5)
	require.NoError(t, err)
	assert.Equal(t, "Hello", short)
}

func TestVisibleText_TruncatesOnRuneBoundary(t *testing.T) {
	page := `<html><body><p>héllo wörld</p></body></html>`

	// One byte of text plus the first byte of the two-byte é.
	text, err := VisibleText(page, 2)
	require.NoError(t, err)
	assert.Equal(t, "h", text)
	assert.True(t, utf8.ValidString(text))
}

func TestCssPath_PositionalFallback(t *testing.T) {
	page := `<html><body><div><p></p><p><input type="text"></p></div></body></html>`

	fields, err := Fields(page)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Contains(t, fields[0].Selector, "nth-of-type")
	assert.Contains(t, fields[0].Selector, "p:nth-of-type(2)")
}

func TestCssPath_AnchorsAtNearestID(t *testing.T) {
	page := `<html><body><div id="panel"><span><input type="text"></span></div></body></html>`

	fields, err := Fields(page)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, strings.HasPrefix(fields[0].Selector, "#panel"), fields[0].Selector)
}
