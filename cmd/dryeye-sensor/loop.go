package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/gpio"
	"github.com/sweeney/dryeye-sensor/internal/logic"
	"github.com/sweeney/dryeye-sensor/internal/mqtt"
	"github.com/sweeney/dryeye-sensor/internal/status"
	"github.com/sweeney/dryeye-sensor/internal/stream"
)

// sinkTimeout bounds a single Redis write from the event loop.
const sinkTimeout = 2 * time.Second

// daemon holds everything the event loop touches. Only runLoop's goroutine
// may use monitor; other goroutines reach it through the command channel.
type daemon struct {
	monitor        *logic.Monitor
	publisher      mqtt.Publisher
	mqttStatus     mqtt.ConnectionStatus // may be nil
	sink           stream.Sink           // may be nil
	tracker        *status.Tracker       // may be nil
	button         gpio.Reader           // may be nil
	buttonDebounce time.Duration
	heartbeat      time.Duration
	sessionSeconds int
	autoStart      bool
	newID          func() string
	now            func() time.Time
	logger         *zap.Logger
}

// loopInputs are the event sources runLoop selects over. A nil channel is
// never ready, which disables that source.
type loopInputs struct {
	frames      <-chan logic.Frame
	ticks       <-chan time.Time // one per session second
	buttonTicks <-chan time.Time
	commands    <-chan command
	sig         <-chan os.Signal
}

func (d *daemon) runLoop(in loopInputs) error {
	hb := logic.NewHeartbeat(d.now())
	var buttonDet *logic.ButtonDetector
	if d.button != nil {
		buttonDet = logic.NewButtonDetector(d.buttonDebounce)
	}

	if d.autoStart {
		if _, err := d.startSession(d.sessionSeconds); err != nil {
			d.logger.Error("auto-start failed", zap.Error(err))
		}
	}
	d.updateTracker()

	frames := in.frames
	for {
		select {
		case s := <-in.sig:
			d.shutdown(s)
			return nil

		case f, ok := <-frames:
			if !ok {
				d.logger.Warn("landmark source closed")
				frames = nil
				continue
			}
			d.processFrame(f)

		case <-in.ticks:
			t := d.now()
			if d.monitor.State() == logic.SessionRunning {
				a, err := d.monitor.Tick(t)
				if err != nil {
					d.logger.Error("session tick failed", zap.Error(err))
				} else if a != nil {
					d.finish(*a)
				}
			}

			if hbData := hb.Check(t, d.heartbeat, d.monitor.Counts()); hbData != nil {
				d.publishHeartbeat(hbData)
			}
			d.updateTracker()

		case <-in.buttonTicks:
			pressed, err := d.button.Read()
			if err != nil {
				d.logger.Warn("button read error", zap.Error(err))
				continue
			}
			if buttonDet.Process(pressed, d.now()) {
				d.toggleSession()
			}

		case cmd := <-in.commands:
			cmd.reply <- d.handleCommand(cmd)
		}
	}
}

func (d *daemon) processFrame(f logic.Frame) {
	res := d.monitor.ProcessFrame(f)
	switch {
	case res.Outcome == logic.FrameSkipped:
		d.logger.Debug("frame skipped", zap.Error(res.Err))
	case res.Err != nil:
		d.logger.Error("blink not recorded", zap.Error(res.Err))
	}
	if res.Event == nil {
		return
	}

	ev := *res.Event
	d.logger.Debug("blink",
		zap.String("session_id", ev.SessionID),
		zap.String("kind", string(ev.Kind)),
		zap.Int("closed_frames", ev.ClosedFrames),
	)
	if err := d.publisher.PublishBlink(ev); err != nil {
		// Don't crash on publish failure
		d.logger.Warn("blink publish error", zap.Error(err))
	}
	d.updateTracker()
}

func (d *daemon) startSession(duration int) (string, error) {
	id := d.newID()
	t := d.now()
	if err := d.monitor.Start(id, duration, t); err != nil {
		return "", err
	}
	d.logger.Info("session started", zap.String("session_id", id), zap.Int("duration_s", duration))

	event := mqtt.SystemEvent{Timestamp: t, Event: mqtt.EventSessionStart, SessionID: id}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.logger.Warn("session start publish error", zap.Error(err))
	}
	d.updateTracker()
	return id, nil
}

func (d *daemon) stopSession() (logic.Assessment, error) {
	a, err := d.monitor.Stop(d.now())
	if err != nil {
		return logic.Assessment{}, err
	}
	d.finish(*a)
	return *a, nil
}

func (d *daemon) toggleSession() {
	if d.monitor.State() == logic.SessionRunning {
		if _, err := d.stopSession(); err != nil {
			d.logger.Warn("button stop rejected", zap.Error(err))
		}
		return
	}
	if _, err := d.startSession(d.sessionSeconds); err != nil {
		d.logger.Warn("button start rejected", zap.Error(err))
	}
}

// finish fans a finalized assessment out to every consumer.
func (d *daemon) finish(a logic.Assessment) {
	d.logger.Info("session finished",
		zap.String("session_id", a.SessionID),
		zap.String("reason", string(a.Reason)),
		zap.Int("elapsed_s", a.ElapsedSeconds),
		zap.Int("complete", a.CompleteBlinks),
		zap.Int("incomplete", a.IncompleteBlinks),
		zap.Float64("rate", a.BlinkRate),
		zap.Stringer("level", a.Level),
		zap.Int("score", a.HealthScore),
	)

	if err := d.publisher.PublishAssessment(a); err != nil {
		d.logger.Warn("assessment publish error", zap.Error(err))
	}
	if d.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		id, err := d.sink.Publish(ctx, a)
		cancel()
		if err != nil {
			d.logger.Warn("assessment stream error", zap.Error(err))
		} else {
			d.logger.Debug("assessment streamed", zap.String("entry_id", id))
		}
	}
	if d.tracker != nil {
		d.tracker.SetAssessment(a)
	}
	d.updateTracker()
}

func (d *daemon) publishHeartbeat(hb *logic.HeartbeatData) {
	d.logger.Info("heartbeat",
		zap.Duration("uptime", hb.Uptime),
		zap.Int("sessions", hb.Counts.Sessions),
		zap.Int("complete", hb.Counts.CompleteBlinks),
		zap.Int("incomplete", hb.Counts.IncompleteBlinks),
		zap.Int("frames", hb.Counts.FramesProcessed),
	)

	event := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: mqtt.EventHeartbeat}
	if d.tracker != nil {
		d.updateTracker()
		event.RawPayload = status.FormatStatusEvent(d.tracker.SnapshotAt(hb.Timestamp), mqtt.EventHeartbeat, "")
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.logger.Warn("heartbeat publish error", zap.Error(err))
	}
}

func (d *daemon) shutdown(s os.Signal) {
	d.logger.Info("shutting down", zap.Stringer("signal", s))
	if d.monitor.State() == logic.SessionRunning {
		if _, err := d.stopSession(); err != nil {
			d.logger.Error("final stop failed", zap.Error(err))
		}
	}

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	t := d.now()
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     mqtt.EventShutdown,
		Reason:    signalName,
		Retained:  true,
	}
	if d.tracker != nil {
		d.updateTracker()
		event.RawPayload = status.FormatStatusEvent(d.tracker.SnapshotAt(t), mqtt.EventShutdown, signalName)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.logger.Warn("failed to publish shutdown event", zap.Error(err))
	}
}

// updateTracker refreshes the state HTTP consumers read.
func (d *daemon) updateTracker() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(d.monitor.Preview(), d.monitor.Counts())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}
