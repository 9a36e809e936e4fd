package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/report"
	"github.com/ajitpratap0/concord/pkg/testutil"
)

const subjects = "id,site,dose\n1,A,10\n1,A,NA\n2,B,20\n2,C,20\n3,D,\n3,D,30\n"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append(args, "--log-level", "error"), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "concord dev")
	assert.Contains(t, out, "Go version:")
}

func TestList(t *testing.T) {
	code, out, _ := runCLI(t, "list", "--verbose")
	assert.Equal(t, exitOK, code)
	for _, want := range []string{"Sources:", "csv", "kafka", "Sinks:", "gcs", "s3", "parquet", "zstd", "connection_string"} {
		assert.Contains(t, out, want)
	}
}

func TestCheckInconsistent(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	reportPath := filepath.Join(filepath.Dir(path), "report.json")

	code, out, errOut := runCLI(t, "check",
		"--source", "csv", "--path", path,
		"--key", "id", "--value", "site,dose",
		"--report", reportPath,
		"--fail-on-inconsistent")
	assert.Equal(t, exitInconsistent, code)
	assert.Contains(t, errOut, "inconsistent keys found")
	assert.Contains(t, out, "subjects: INCONSISTENT")
	assert.Contains(t, out, "site: 1 of 3 keys inconsistent")
	assert.Contains(t, out, "    2: B, C")
	assert.Contains(t, out, "dose: 0 of 3 keys inconsistent")
	assert.Contains(t, out, "report: "+reportPath)

	f, err := os.Open(reportPath)
	require.NoError(t, err)
	defer f.Close()
	rep, err := report.Read(f, report.JSON, "none")
	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	assert.Equal(t, "id", rep.KeyField)
	assert.Equal(t, 6, rep.Rows)
}

func TestCheckWithoutFailFlag(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	code, out, _ := runCLI(t, "check", "--source", "csv", "--path", path, "--key", "id", "--value", "site")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "INCONSISTENT")
}

func TestCheckMissingPolicyValue(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	code, out, _ := runCLI(t, "check",
		"--source", "csv", "--path", path,
		"--key", "id", "--value", "dose",
		"--policy", "value", "--fail-on-inconsistent")
	assert.Equal(t, exitInconsistent, code)
	assert.Contains(t, out, "dose: 2 of 3 keys inconsistent")
	assert.Contains(t, out, "    1: 10 (+missing)")
}

func TestCheckFromEnvironment(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	t.Setenv("CONCORD_SOURCE_TYPE", "csv")
	t.Setenv("CONCORD_CHECK_KEY_FIELD", "id")
	t.Setenv("CONCORD_CHECK_VALUE_FIELDS", "dose")
	t.Setenv("CONCORD_CHECK_FAIL_ON_INCONSISTENT", "true")

	code, out, _ := runCLI(t, "check", "--path", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "subjects: consistent")
	assert.Contains(t, out, `key "id"`)
}

func TestCheckFromConfigFile(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	dir := filepath.Dir(path)
	cfgPath := testutil.WriteFile(t, "run.yaml", `name: nightly
source:
  type: csv
  settings:
    path: `+path+`
check:
  key_field: id
  value_fields: [site]
  strategy: first_seen
sink:
  type: local
  directory: `+filepath.Join(dir, "store")+`
report:
  format: yaml
`)

	code, out, _ := runCLI(t, "check", "--config", cfgPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "strategy first_seen")
	assert.Contains(t, out, "stored: ")
	assert.Contains(t, out, "report.yaml")

	// Flags win over the file
	code, out, _ = runCLI(t, "check", "--config", cfgPath, "--value", "dose", "--sink", "")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "subjects: consistent")
	assert.NotContains(t, out, "stored: ")
}

func TestConvertAndInspect(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	out := filepath.Join(filepath.Dir(path), "subjects.parquet")

	code, stdout, stderr := runCLI(t, "convert",
		"--source", "csv", "--path", path,
		"--format", "parquet", "--compression", "zstd", "--output", out)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "subjects: 6 rows, 3 columns")
	assert.Contains(t, stdout, "output: "+out)

	code, stdout, _ = runCLI(t, "inspect", out)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "format:  parquet")
	assert.Contains(t, stdout, "rows:    6")
	assert.Contains(t, stdout, "[1, 3]")

	code, stdout, _ = runCLI(t, "inspect", "--json", out)
	require.Equal(t, exitOK, code)
	var ins inspection
	require.NoError(t, json.Unmarshal([]byte(stdout), &ins))
	assert.Equal(t, 6, ins.Rows)
	require.Len(t, ins.Columns, 3)
	assert.Equal(t, "id", ins.Columns[0].Name)
	assert.Equal(t, "int8", ins.Columns[0].Storage)
	assert.Equal(t, "int8", ins.Columns[0].Narrowest)
	assert.Equal(t, 2, ins.Columns[2].Nulls)
	assert.Nil(t, ins.Columns[1].Min)
}

func TestConvertRequiresFormat(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	code, _, stderr := runCLI(t, "convert", "--source", "csv", "--path", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "error:")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config file", []string{"check", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, "failed to load configuration"},
		{"missing source type", []string{"check", "--key", "id", "--value", "site"}, "source.type is required"},
		{"unknown strategy", []string{"check", "--source", "csv", "--key", "id", "--value", "site", "--strategy", "fastest"}, "check.strategy"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"inspect without file", []string{"inspect"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestProfiles(t *testing.T) {
	path := testutil.WriteFile(t, "subjects.csv", subjects)
	dir := filepath.Dir(path)
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "mem.prof")

	code, _, stderr := runCLI(t, "convert",
		"--source", "csv", "--path", path,
		"--format", "arrow", "--output", filepath.Join(dir, "subjects.arrow"),
		"--cpuprofile", cpu, "--memprofile", mem)
	require.Equal(t, exitOK, code, stderr)

	for _, p := range []string{cpu, mem} {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
}
