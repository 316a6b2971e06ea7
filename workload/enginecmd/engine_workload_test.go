package enginecmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qpaging/qpbench/workload"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestNewEngineWorkloadRequiresPath(t *testing.T) {
	_, err := NewEngineWorkload(&EngineWorkloadInput{Name: "e"}, nil)
	require.ErrorContains(t, err, "engine path must be set")
}

func TestNewEngineWorkloadRejectsVPrefix(t *testing.T) {
	_, err := NewEngineWorkload(&EngineWorkloadInput{
		EnginePath:    "/bin/true",
		EngineVersion: "v0.1.0",
	}, nil)
	require.ErrorContains(t, err, "must not start with a v")
}

func TestNewEngineWorkloadRejectsUnparsableVersion(t *testing.T) {
	_, err := NewEngineWorkload(&EngineWorkloadInput{
		EnginePath:    "/bin/true",
		EngineVersion: "latest-and-greatest",
	}, nil)
	require.ErrorContains(t, err, "failed to parse engine version")
}

func TestRunPassesRequestAndParsesOutput(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "argv.json")
	script := writeScript(t, dir, fmt.Sprintf("printf '%%s' \"$1\" > %q\necho '{\"Ok\":true,\"Norm\":1.0}'\n", capture))

	w, err := NewEngineWorkload(&EngineWorkloadInput{
		Name:          "paging",
		EnginePath:    script,
		EngineVersion: "0.1.0",
	}, &workload.Hints{MemoryBudget: "2GB", BackingStore: dir})
	require.NoError(t, err)

	require.NoError(t, w.Run(workload.HeavyProgram(3)))

	buf, err := os.ReadFile(capture)
	require.NoError(t, err)

	var req request
	require.NoError(t, json.Unmarshal(buf, &req))
	require.Equal(t, 3, req.Units)
	require.Len(t, req.Ops, 9)
	require.Equal(t, "2GB", req.MemoryBudget)
	require.Equal(t, dir, req.BackingStore)
	require.True(t, strings.HasPrefix(req.StateFile, filepath.Join(dir, "state_")))
	require.True(t, strings.HasSuffix(req.StateFile, ".bin"))

	// Each run names a fresh state file.
	require.NoError(t, w.Run(workload.HeavyProgram(3)))
	buf2, err := os.ReadFile(capture)
	require.NoError(t, err)
	var req2 request
	require.NoError(t, json.Unmarshal(buf2, &req2))
	require.NotEqual(t, req.StateFile, req2.StateFile)
}

func TestRunSurfacesEngineFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo '{\"Ok\":false,\"Error\":\"state spill failed\"}'\n")

	w, err := NewEngineWorkload(&EngineWorkloadInput{EnginePath: script}, &workload.Hints{BackingStore: dir})
	require.NoError(t, err)

	err = w.Run(workload.HeavyProgram(2))
	require.ErrorContains(t, err, "state spill failed")
}

func TestRunSurfacesNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo 'out of memory'\nexit 3\n")

	w, err := NewEngineWorkload(&EngineWorkloadInput{EnginePath: script}, &workload.Hints{BackingStore: dir})
	require.NoError(t, err)

	err = w.Run(workload.HeavyProgram(2))
	require.ErrorContains(t, err, "engine run failed")
	require.ErrorContains(t, err, "out of memory")
}

func TestRunRejectsNonJSONOutput(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo 'done'\n")

	w, err := NewEngineWorkload(&EngineWorkloadInput{EnginePath: script}, &workload.Hints{BackingStore: dir})
	require.NoError(t, err)

	err = w.Run(workload.HeavyProgram(2))
	require.ErrorContains(t, err, "unmarshalling engine output failed")
}

func TestDeserializeEngineWorkload(t *testing.T) {
	w, err := workload.Deserialize(&workload.SerializedWorkload{
		Type: "engine",
		Input: map[string]any{
			"Name":       "sweep",
			"EnginePath": "/bin/true",
		},
	}, &workload.Hints{BackingStore: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "sweep", w.GetName())
	require.Equal(t, "/bin/true", w.GetInput()["EnginePath"])
}
