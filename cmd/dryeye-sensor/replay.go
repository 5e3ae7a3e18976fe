package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/dryeye-sensor/internal/config"
	"github.com/sweeney/dryeye-sensor/internal/landmarks"
	"github.com/sweeney/dryeye-sensor/internal/logic"
)

var (
	replayDurationFlag int
	replayIDFlag       string
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Run one session over a recorded JSONL frame file",
	Long: `Replay feeds a JSONL landmark recording through the engine as a single
session. Session seconds are derived from the frame timestamps. If the file ends
before the session duration, the session is stopped early. The assessment is
printed as JSON. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayDurationFlag, "duration", 0, "Session length in seconds (default DRYEYE_SESSION_SECONDS)")
	replayCmd.Flags().StringVar(&replayIDFlag, "session-id", "", "Session ID (default random)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		return err
	}
	if replayDurationFlag > 0 {
		cfg.SessionSeconds = replayDurationFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	id := replayIDFlag
	if id == "" {
		id = uuid.NewString()
	}

	m := logic.NewMonitor(cfg.MonitorConfig())
	a, err := replaySession(landmarks.NewReplayReader(in), m, id, cfg.SessionSeconds)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// replaySession runs frames from r through m as one session. The session
// starts at the first frame's timestamp and a tick is issued for every whole
// second of frame time that passes.
func replaySession(r *landmarks.ReplayReader, m *logic.Monitor, id string, duration int) (logic.Assessment, error) {
	f, err := r.Next()
	if errors.Is(err, io.EOF) {
		return logic.Assessment{}, errors.New("replay: no frames")
	}
	if err != nil {
		return logic.Assessment{}, fmt.Errorf("replay: %w", err)
	}

	if err := m.Start(id, duration, f.Time); err != nil {
		return logic.Assessment{}, err
	}
	nextTick := f.Time.Add(time.Second)
	last := f.Time

	for {
		for !f.Time.Before(nextTick) {
			a, err := m.Tick(nextTick)
			if err != nil {
				return logic.Assessment{}, err
			}
			if a != nil {
				return *a, nil
			}
			nextTick = nextTick.Add(time.Second)
		}
		m.ProcessFrame(f)
		if f.Time.After(last) {
			last = f.Time
		}

		f, err = r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return logic.Assessment{}, fmt.Errorf("replay: %w", err)
		}
	}

	a, err := m.Stop(last)
	if err != nil {
		return logic.Assessment{}, err
	}
	return *a, nil
}
