package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

func TestFastPlan_PureNavigation(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		url    string
	}{
		{"bare domain", "go to github.com", "https://github.com"},
		{"explicit url", "please open https://news.ycombinator.com/newest", "https://news.ycombinator.com/newest"},
		{"well-known keyword", "open youtube", "https://youtube.com"},
		{"visit phrasing", "visit wikipedia please", "https://wikipedia.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := FastPlan(tt.prompt)
			require.True(t, ok)
			steps := Sanitize(raw, nil)
			require.Len(t, steps, 1)
			assert.Equal(t, entity.ActionNavigate, steps[0].Kind)
			assert.Equal(t, tt.url, steps[0].URL)
		})
	}
}

func TestFastPlan_MediaPhrasingBlocksNavigation(t *testing.T) {
	_, ok := FastPlan("open youtube and play lo-fi beats")
	assert.False(t, ok)
}

func TestFastPlan_NoIntentNoPlan(t *testing.T) {
	_, ok := FastPlan("summarize this page for me")
	assert.False(t, ok)
}

func TestFastPlan_RegistrationWithRandomCredentials(t *testing.T) {
	raw, ok := FastPlan("Register on https://example.com with email random and password random")
	require.True(t, ok)

	steps := Sanitize(raw, nil)
	require.Len(t, steps, 3)

	assert.Equal(t, entity.ActionNavigate, steps[0].Kind)
	assert.Equal(t, "https://example.com", steps[0].URL)
	assert.Equal(t, entity.ActionAnalyzePage, steps[1].Kind)

	fill := steps[2]
	assert.Equal(t, entity.ActionFillForm, fill.Kind)
	assert.True(t, fill.Submit)

	var email, password string
	for _, f := range fill.Fields {
		switch f.Name {
		case "email":
			email = f.Value
		case "password":
			password = f.Value
		}
	}
	require.NotEmpty(t, email)
	require.NotEmpty(t, password)
	assert.NotEqual(t, "random", email)
	assert.NotEqual(t, "random", password)
	assert.Contains(t, email, "@")
}

func TestFastPlan_RegistrationExtractsProvidedValues(t *testing.T) {
	raw, ok := FastPlan("sign up at https://example.org with email jane@mail.test and password S3cret!x")
	require.True(t, ok)

	steps := Sanitize(raw, nil)
	require.Len(t, steps, 3)

	var email, password string
	for _, f := range steps[2].Fields {
		switch f.Name {
		case "email":
			email = f.Value
		case "password":
			password = f.Value
		}
	}
	assert.Equal(t, "jane@mail.test", email)
	assert.Equal(t, "S3cret!x", password)
}

func TestFastPlan_RegistrationNeedsExplicitURL(t *testing.T) {
	_, ok := FastPlan("register an account for me")
	assert.False(t, ok)
}

func TestInferDefaultTarget(t *testing.T) {
	tests := []struct {
		prompt string
		mode   entity.TargetMode
		value  string
	}{
		{"close popups on example.com tabs", entity.TargetDomain, "example.com"},
		{"scrape all tabs", entity.TargetAll, ""},
		{"analyze every open tab", entity.TargetAll, ""},
		{"click the button", entity.TargetActive, ""},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			target := InferDefaultTarget(tt.prompt)
			require.NotNil(t, target)
			assert.Equal(t, tt.mode, target.Mode)
			if tt.value != "" {
				assert.Equal(t, tt.value, target.Value)
			}
		})
	}
}
