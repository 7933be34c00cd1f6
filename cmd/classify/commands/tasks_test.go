// ABOUTME: Tests for the tasks command
// ABOUTME: Lists built-in tasks and tasks added from a YAML file

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTasks_Table(t *testing.T) {
	isolateEnv(t)

	out, _, err := execute(t, "", "tasks")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "strong-mayor-powers *")
	assert.Contains(t, out, "bill-stance")
	assert.Contains(t, out, "for, against")
}

func TestTasks_JSONWithTaskFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	doc := `name: zoning
label_column: Zoning
categories: [support, oppose]
instruction: Decide whether the comment supports the rezoning.
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, _, err := execute(t, "", "tasks", "--task-file", path, "--format", "json")
	require.NoError(t, err)

	names := gjson.Get(out, "#.name").Array()
	require.Len(t, names, 3)
	assert.Equal(t, "bill-stance", names[0].String())
	assert.Equal(t, "zoning", names[2].String())

	zoning := gjson.Get(out, `#(name=="zoning")`)
	assert.Equal(t, "Zoning", zoning.Get("label_column").String())
	assert.False(t, zoning.Get("default").Bool())
	assert.True(t, gjson.Get(out, `#(name=="strong-mayor-powers").default`).Bool())
}

func TestTasks_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "", "tasks", "--task-file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
