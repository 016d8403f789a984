package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const explainFixture = `
version: "1"
name: release
tasks:
  - name: build
    actions:
      - type: noop
        name: compile
  - name: deploy
    after: [build]
    actions:
      - type: noop
        name: push
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExplainCommandPrintsWavePlan(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, explainFixture)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"explain", path})

	require.NoError(t, root.Execute())

	var plan [][]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &plan))
	require.Equal(t, [][]string{{"build"}, {"deploy"}}, plan)
}

func TestDryRunCommandDescribesTasks(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, explainFixture)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"dry-run", path})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "compile")
	require.Contains(t, buf.String(), "push")
}

func TestRunCommandExecutesPipeline(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, explainFixture)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"run", path})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "task_end build")
	require.Contains(t, buf.String(), "task_end deploy")
}
