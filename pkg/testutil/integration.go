package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationSuite is the base of suites that talk to live services.
type IntegrationSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// SetupSuite creates the suite context and temp dir.
func (s *IntegrationSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.tempDir = s.T().TempDir()
}

// TearDownSuite cancels the suite context.
func (s *IntegrationSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Context returns the suite context.
func (s *IntegrationSuite) Context() context.Context {
	return s.ctx
}

// CreateTempFile writes content to name in the suite temp dir.
func (s *IntegrationSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.WriteFile(path, content, 0o600))
	return path
}

// IntegrationTest skips t in short mode.
func IntegrationTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireEnv returns the value of every named variable, skipping t when one
// of them is unset.
func RequireEnv(t *testing.T, names ...string) map[string]string {
	t.Helper()
	IntegrationTest(t)
	values := make(map[string]string, len(names))
	for _, n := range names {
		v := os.Getenv(n)
		if v == "" {
			t.Skipf("%s not set", n)
		}
		values[n] = v
	}
	return values
}

// GenerateCSV writes a key,value CSV with rows records spread over keys
// distinct keys. Every key divisible by conflictEvery gets a second value;
// those keys are returned in ascending order. conflictEvery <= 0 produces a
// consistent file.
func GenerateCSV(t testing.TB, dir string, rows, keys, conflictEvery int) (string, []int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("key,value\n")
	for i := 0; i < rows; i++ {
		k := i % keys
		v := k * 7
		if conflictEvery > 0 && k%conflictEvery == 0 && i >= keys {
			v++
		}
		fmt.Fprintf(&b, "%d,%d\n", k, v)
	}
	path := filepath.Join(dir, fmt.Sprintf("generated_%d.csv", rows))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	var bad []int
	if conflictEvery > 0 && rows > keys {
		for k := 0; k < keys && k+keys < rows; k++ {
			if k%conflictEvery == 0 {
				bad = append(bad, k)
			}
		}
	}
	return path, bad
}
