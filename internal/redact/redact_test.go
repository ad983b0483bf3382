package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_MasksEmails(t *testing.T) {
	out := String("contact john.doe@example.com please")
	assert.Equal(t, "contact j***@example.com please", out)
}

func TestString_RedactsCredentialPhrases(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"password equals", "login with password=hunter2"},
		{"token colon", "use token: abc123"},
		{"api key", "api_key=sk-fake-value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := String(tt.in)
			assert.Contains(t, out, "[redacted]")
			assert.NotContains(t, out, "hunter2")
			assert.NotContains(t, out, "abc123")
			assert.NotContains(t, out, "sk-fake-value")
		})
	}
}

func TestString_MasksLongOpaqueTokens(t *testing.T) {
	tok := strings.Repeat("a", 16) + strings.Repeat("b", 16)
	out := String("bearer " + tok)
	assert.NotContains(t, out, tok)
	assert.Contains(t, out, "aaaa…bbbb")
}

func TestString_LeavesOrdinaryTextAlone(t *testing.T) {
	in := "go to github.com and open the first issue"
	assert.Equal(t, in, String(in))
}

func TestValue_CredentialTypedValuesFullyReplaced(t *testing.T) {
	assert.Equal(t, "[redacted]", Value("password", "short"))
	assert.Equal(t, "[redacted]", Value("otp", "123456"))
}

func TestValue_PlainValuesKeepPartialMasking(t *testing.T) {
	out := Value("email", "jane@example.org")
	assert.Equal(t, "j***@example.org", out)
}

func TestCredentialType(t *testing.T) {
	assert.True(t, CredentialType("password"))
	assert.True(t, CredentialType("api_key"))
	assert.True(t, CredentialType("one-time otp code"))
	assert.False(t, CredentialType("email"))
	assert.False(t, CredentialType("text"))
}
