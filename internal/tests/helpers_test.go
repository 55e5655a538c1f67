package tests

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"readersync/internal/api"
	"readersync/internal/engine"
	"readersync/internal/metrics"
	"readersync/internal/runner"
	"readersync/internal/store"
)

// system is a running API plus dispatcher over a temp database, with a
// shell script standing in for the processor. The script appends each
// argument list it receives to a calls file.
type system struct {
	st    *store.Store
	srv   *httptest.Server
	calls string
}

func startSystem(t *testing.T, summary string) *system {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewStore(filepath.Join(dir, "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	calls := filepath.Join(dir, "calls")
	script := filepath.Join(dir, "processor.sh")
	body := "echo \"$*\" >> '" + calls + "'\necho '" + summary + "'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	log := zaptest.NewLogger(t)
	m := metrics.New()
	r := runner.New(runner.Options{
		Bin:           "/bin/sh",
		ProcessScript: script,
		ResyncScript:  script,
		Timeout:       10 * time.Second,
	}, log, m)
	disp := engine.NewDispatcher(r, 20, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = disp.Run(ctx)
	}()

	srv := httptest.NewServer(api.New(api.Options{
		Store:      st,
		Runner:     r,
		Dispatcher: disp,
		Metrics:    m,
		Logger:     log,
	}).Handler())

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &system{st: st, srv: srv, calls: calls}
}

// waitForCall blocks until the processor has been invoked with want.
func (s *system) waitForCall(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(s.calls)
		if err != nil {
			return false
		}
		for _, line := range strings.Split(string(b), "\n") {
			if line == want {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond, "processor never called with %q", want)
}
