package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dryeye-sensor/internal/landmarks"
	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// recording encodes one frame every 250ms from t0 with the given openness
// values, as a JSONL stream.
func recording(t *testing.T, ears ...float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# recorded by test\n")
	for i, ear := range ears {
		f, err := logic.NewFrame(t0.Add(time.Duration(i)*250*time.Millisecond), eye(0, ear), eye(2, ear))
		require.NoError(t, err)
		line, err := landmarks.Encode(f)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// thirteenFrames spans t0..t0+3s with one complete blink in the first second
// and one incomplete blink in the second.
func thirteenFrames(t *testing.T) string {
	return recording(t,
		open, closed, closed, open, // 0s
		open, closed, open, open, // 1s
		open, open, open, open, // 2s
		open, // 3s
	)
}

func TestReplaySessionFinishesOnDuration(t *testing.T) {
	m := logic.NewMonitor(logic.MonitorConfig{})
	r := landmarks.NewReplayReader(strings.NewReader(thirteenFrames(t)))

	a, err := replaySession(r, m, "replay-1", 2)
	require.NoError(t, err)
	assert.Equal(t, "replay-1", a.SessionID)
	assert.Equal(t, logic.FinishDuration, a.Reason)
	assert.Equal(t, 2, a.ElapsedSeconds)
	assert.Equal(t, 1, a.CompleteBlinks)
	assert.Equal(t, 1, a.IncompleteBlinks)
	assert.InDelta(t, 30.0, a.BlinkRate, 1e-9)
	assert.True(t, a.StartedAt.Equal(t0))
	assert.True(t, a.FinishedAt.Equal(t0.Add(2*time.Second)))
}

func TestReplaySessionStopsAtEndOfFile(t *testing.T) {
	m := logic.NewMonitor(logic.MonitorConfig{})
	r := landmarks.NewReplayReader(strings.NewReader(thirteenFrames(t)))

	a, err := replaySession(r, m, "replay-2", 60)
	require.NoError(t, err)
	assert.Equal(t, logic.FinishStopped, a.Reason)
	assert.Equal(t, 3, a.ElapsedSeconds)
	assert.Equal(t, 60, a.DurationSeconds)
	assert.True(t, a.FinishedAt.Equal(t0.Add(3*time.Second)))
}

func TestReplaySessionEmpty(t *testing.T) {
	m := logic.NewMonitor(logic.MonitorConfig{})
	r := landmarks.NewReplayReader(strings.NewReader("# nothing\n\n"))

	_, err := replaySession(r, m, "replay-3", 60)
	assert.EqualError(t, err, "replay: no frames")
	assert.Equal(t, logic.SessionIdle, m.State())
}

func TestReplaySessionBadLine(t *testing.T) {
	m := logic.NewMonitor(logic.MonitorConfig{})
	input := recording(t, open, open) + "{not json\n"
	r := landmarks.NewReplayReader(strings.NewReader(input))

	_, err := replaySession(r, m, "replay-4", 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := executeRoot(t, "classify", "9", "--complete", "9", "--incomplete", "3")
	require.NoError(t, err)

	var a logic.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, logic.RiskHighRisk, a.Level)
	assert.InDelta(t, 9.0, a.BlinkRate, 1e-9)
	assert.Equal(t, 25, a.IncompletePercent)
	assert.NotEmpty(t, a.Recommendations)
	assert.Contains(t, out, `"risk_level": "high-risk"`)
}

func TestClassifyCommandInvalidRate(t *testing.T) {
	_, err := executeRoot(t, "classify", "-1")
	assert.Error(t, err)

	_, err = executeRoot(t, "classify", "fast")
	assert.EqualError(t, err, `invalid rate "fast"`)

	for _, rate := range []string{"NaN", "Inf", "+Inf"} {
		out, err := executeRoot(t, "classify", rate)
		assert.EqualError(t, err, fmt.Sprintf("invalid rate %q", rate))
		assert.NotContains(t, out, "health_score")
	}
}

func TestReplayCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(thirteenFrames(t)), 0o644))

	out, err := executeRoot(t, "replay", path, "--duration", "2", "--session-id", "cli-replay")
	require.NoError(t, err)

	var a logic.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "cli-replay", a.SessionID)
	assert.Equal(t, logic.RiskStress, a.Level)
}

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	envFileFlag = filepath.Join(t.TempDir(), "missing.env")
	logLevelFlag = ""
	return cmd
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DRYEYE_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("DRYEYE_SESSION_SECONDS", "45")
	t.Setenv("DRYEYE_HTTP_ADDR", ":9000")

	cmd := newFlagCommand(t, "--broker", "tcp://flag:1883", "--http", "off", "--auto-start", "--threshold", "0.25")
	cfg, err := loadConfig(cmd.Flags())
	require.NoError(t, err)

	assert.Equal(t, "tcp://flag:1883", cfg.MQTT.Broker)
	assert.Equal(t, "", cfg.HTTPAddr)
	assert.True(t, cfg.AutoStart)
	assert.InDelta(t, 0.25, cfg.BlinkThreshold, 1e-9)
	assert.Equal(t, 45, cfg.SessionSeconds, "unset flags keep the environment value")
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	cmd := newFlagCommand(t, "--session-seconds", "-5")
	_, err := loadConfig(cmd.Flags())
	assert.ErrorContains(t, err, "invalid config")
}
