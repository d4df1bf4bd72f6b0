package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teachkit/internal/model"
)

func TestSessionViewGuest(t *testing.T) {
	v := newSessionView(nil)
	assert.False(t, v.LoggedIn)
	assert.Equal(t, "guest", v.Role)
	assert.ElementsMatch(t, []string{"play", "feedback"}, v.Capabilities)
}

func TestSessionViewTeacher(t *testing.T) {
	v := newSessionView(&model.Session{UserID: "7", Username: "lehrer", Email: "l@schule.de", Role: model.RoleTeacher})
	assert.True(t, v.LoggedIn)
	assert.Contains(t, v.Capabilities, "editor")
	assert.NotContains(t, v.Capabilities, "stats")
}

func TestOutputText(t *testing.T) {
	var buf bytes.Buffer
	NewOutput("text", &buf).Print(CanResult{Capability: "editor", Role: "guest", Allowed: false})
	assert.Equal(t, "editor: denied (role guest)\n", buf.String())
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	NewOutput("json", &buf).Print(CanResult{Capability: "stats", Role: "admin", Allowed: true})

	var got CanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Allowed)
	assert.Equal(t, "admin", got.Role)
}
