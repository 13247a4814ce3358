package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func testMonitorConfig(p float64) monitor.Config {
	return monitor.Config{TickInterval: time.Second, ResolutionDelay: 2 * time.Second, AlertProbability: p}
}

func TestSimulateWithoutAlerts(t *testing.T) {
	var out bytes.Buffer
	sum, err := simulate(context.Background(), &out, testMonitorConfig(0), monitor.DefaultRoutes, runOptions{
		route:    "Lima - Cusco",
		duration: 90 * time.Second,
		every:    60,
	})
	require.NoError(t, err)

	assert.Equal(t, 90, sum.ElapsedSeconds)
	assert.Zero(t, sum.AlertCount)
	assert.Equal(t, 100, sum.Effectiveness)

	text := out.String()
	assert.Contains(t, text, "Trip started: Lima - Cusco")
	assert.Contains(t, text, "[00:01:00] alerts 0  responses 0  effectiveness 100%")
	assert.Contains(t, text, "effectiveness  100% (good)")
	assert.NotContains(t, text, "ALERT")
}

func TestSimulateWithAlerts(t *testing.T) {
	var out bytes.Buffer
	sum, err := simulate(context.Background(), &out, testMonitorConfig(1), monitor.DefaultRoutes, runOptions{
		route:    "Cusco - Puno",
		duration: 10 * time.Second,
		seed:     7,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, sum.ElapsedSeconds)
	assert.Positive(t, sum.AlertCount)
	assert.LessOrEqual(t, sum.ResponseCount, sum.AlertCount)
	assert.Equal(t, monitor.Effectiveness(sum.AlertCount, sum.ResponseCount), sum.Effectiveness)
	assert.Contains(t, out.String(), "ALERT Reduce speed! (#1)")
	assert.Contains(t, out.String(), "resolved responses 1/1")
}

func TestSimulateUnknownRoute(t *testing.T) {
	_, err := simulate(context.Background(), &bytes.Buffer{}, testMonitorConfig(0), monitor.DefaultRoutes, runOptions{route: "Lima - Tokyo", duration: time.Second})

	var invalid *monitor.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "destination", invalid.Field)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := simulate(ctx, &bytes.Buffer{}, testMonitorConfig(0), monitor.DefaultRoutes, runOptions{route: "Lima - Piura", duration: time.Hour})
	require.NoError(t, err)
	assert.Zero(t, sum.ElapsedSeconds)
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "monitor:\n  routes:\n    - Quito - Guayaquil\n    - Quito - Cuenca\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestRoutesCmd(t *testing.T) {
	t.Setenv("MONITOR_ROUTES", "")
	os.Unsetenv("MONITOR_ROUTES")

	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"routes", "--config-path", writeConfig(t)})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), " 1. Quito → Guayaquil")
	assert.Contains(t, out.String(), " 2. Quito → Cuenca")
}

func TestRunCmd(t *testing.T) {
	for _, key := range []string{"MONITOR_ROUTES", "MONITOR_TICK_INTERVAL", "MONITOR_RESOLUTION_DELAY", "MONITOR_ALERT_PROBABILITY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--config-path", writeConfig(t), "--route", "Quito - Cuenca", "--duration", "30s", "--alert-p", "0"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "elapsed        00:00:30")
}

func TestRunCmdRequiresRoute(t *testing.T) {
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--config-path", writeConfig(t)})

	assert.Error(t, root.Execute())
}
