package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildinginthecloud/site/internal/cliutil"
)

func TestEnvironmentArgument(t *testing.T) {
	cmd := newCommand()

	assert.NoError(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"dev"}))
	assert.NoError(t, cmd.Args(cmd, []string{"prod"}))
	assert.ErrorContains(t, cmd.Args(cmd, []string{"staging"}), `invalid environment "staging"`)
	assert.Error(t, cmd.Args(cmd, []string{"dev", "prod"}))
}

func TestRunWithEnvironmentAndRollback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.org"+r.URL.Path, http.StatusMovedPermanently)
	}))
	defer srv.Close()
	source := strings.TrimPrefix(srv.URL, "http://")

	cmd := newCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"dev", "--rollback",
		"--source", source, "--target", "example.org",
		"--timeout", "2s", "--log-level", "error"})

	// Only the plain HTTP URL reaches the test server, so the run is
	// unhealthy; the arguments themselves are accepted.
	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, cliutil.ErrFailed)
	assert.Contains(t, out.String(), "Health check for "+source+" -> example.org")
	assert.Contains(t, out.String(), "[OK]   http://"+source)
	assert.Contains(t, errOut.String(), cliutil.RollbackNotice)
}
