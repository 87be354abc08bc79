package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeProblem(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGradeCommandMath(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	path := writeProblem(t, `{"kind":"math-expression","points":5,"correct_answers":["3.14159"],"max_attempts":1}`)

	out, err := run(t, "grade", path, "--answer", "3.1416", "--prior", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"is_half_credit": true`)
	assert.Contains(t, out, "score: 2.5/5.0")
}

func TestGradeCommandRejectsInvalidProblem(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	path := writeProblem(t, `{"kind":"multiple-choice","points":1,"options":[]}`)

	_, err := run(t, "grade", path, "--answer", "x", "--prior", "0")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:"+filepath.Join(t.TempDir(), "classroom.db"))

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")
}
