package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge_WithoutAllFlag_Errors(t *testing.T) {
	err := (&PurgeCommand{globals: &GlobalFlags{}}).Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestPurge_WithAllAndForce_Succeeds(t *testing.T) {
	e := newTestEnv(t)
	seedFixtures(t, e)

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}, store: e.store}

	var err error
	out := captureOutput(t, func() {
		err = cmd.Execute(nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Purged all data")
	assert.Zero(t, countEvents(t, e))
}

func TestPurge_ConfirmationAccepted(t *testing.T) {
	e := newTestEnv(t)
	seedFixtures(t, e)

	cmd := &PurgeCommand{All: true, globals: &GlobalFlags{JSON: true}, store: e.store, stdin: strings.NewReader("PURGE\n")}

	var err error
	out := captureOutput(t, func() {
		err = cmd.Execute(nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, `Type "PURGE" to confirm`)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[len(lines)-1], `Type "PURGE" to confirm: `)), &res))
	assert.Equal(t, true, res["purged"])
	assert.Zero(t, countEvents(t, e))
}

func TestPurge_ConfirmationRejected(t *testing.T) {
	e := newTestEnv(t)
	seedFixtures(t, e)

	cmd := &PurgeCommand{All: true, globals: &GlobalFlags{}, store: e.store, stdin: strings.NewReader("nope\n")}

	var err error
	captureOutput(t, func() {
		err = cmd.Execute(nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation text did not match")
	assert.Equal(t, 3, countEvents(t, e))

	cmd.stdin = strings.NewReader("")
	captureOutput(t, func() {
		err = cmd.Execute(nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input received")
}
