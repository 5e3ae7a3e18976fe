package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/config"
	"github.com/sweeney/dryeye-sensor/internal/gpio"
	"github.com/sweeney/dryeye-sensor/internal/landmarks"
	"github.com/sweeney/dryeye-sensor/internal/logger"
	"github.com/sweeney/dryeye-sensor/internal/logic"
	"github.com/sweeney/dryeye-sensor/internal/mqtt"
	"github.com/sweeney/dryeye-sensor/internal/status"
	"github.com/sweeney/dryeye-sensor/internal/stream"
	"github.com/sweeney/dryeye-sensor/internal/web"
)

// frameBuffer is the landmark channel capacity: about three seconds at 30 fps.
const frameBuffer = 90

// CLI flags
var (
	envFileFlag   string
	logLevelFlag  string
	brokerFlag    string
	httpFlag      string
	redisFlag     string
	buttonPinFlag int
	sessionFlag   int
	heartbeatFlag time.Duration
	autoStartFlag bool
	thresholdFlag float64
	minFramesFlag int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sensor daemon (default)",
	Long: `Run subscribes to the landmark topic and processes frames in a single event
loop. Sessions are started and stopped over HTTP, with the push button, or at
boot with --auto-start. Flags override the DRYEYE_* environment variables.`,
	RunE: runDaemonCmd,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&brokerFlag, "broker", "", "MQTT broker address (DRYEYE_MQTT_BROKER)")
	f.StringVar(&httpFlag, "http", "", `HTTP status address, "off" disables (DRYEYE_HTTP_ADDR)`)
	f.StringVar(&redisFlag, "redis", "", "Redis address for the assessment stream (DRYEYE_REDIS_ADDR)")
	f.IntVar(&buttonPinFlag, "button-pin", -1, "BCM pin of the start/stop button, -1 disables (DRYEYE_BUTTON_PIN)")
	f.IntVar(&sessionFlag, "session-seconds", 0, "Session length in seconds (DRYEYE_SESSION_SECONDS)")
	f.DurationVar(&heartbeatFlag, "heartbeat", 0, "Heartbeat interval, 0 disables (DRYEYE_HEARTBEAT)")
	f.BoolVar(&autoStartFlag, "auto-start", false, "Start a session as soon as the daemon is up (DRYEYE_AUTO_START)")
	f.Float64Var(&thresholdFlag, "threshold", 0, "Eye openness blink threshold (DRYEYE_BLINK_THRESHOLD)")
	f.IntVar(&minFramesFlag, "min-frames", 0, "Closed frames for a complete blink (DRYEYE_MIN_CONSEC_FRAMES)")
}

// loadConfig reads the environment and applies flags the user set explicitly.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("broker") {
		cfg.MQTT.Broker = brokerFlag
	}
	if flags.Changed("http") {
		cfg.HTTPAddr = httpFlag
		if httpFlag == "off" {
			cfg.HTTPAddr = ""
		}
	}
	if flags.Changed("redis") {
		cfg.Redis.Addr = redisFlag
	}
	if flags.Changed("button-pin") {
		cfg.Button.Pin = buttonPinFlag
	}
	if flags.Changed("session-seconds") {
		cfg.SessionSeconds = sessionFlag
	}
	if flags.Changed("heartbeat") {
		cfg.Heartbeat = heartbeatFlag
	}
	if flags.Changed("auto-start") {
		cfg.AutoStart = autoStartFlag
	}
	if flags.Changed("threshold") {
		cfg.BlinkThreshold = thresholdFlag
	}
	if flags.Changed("min-frames") {
		cfg.MinConsecFrames = minFramesFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runDaemonCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dryeye-sensor")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", zap.Error(err))
		return err
	}
	return nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Initialize MQTT: one client carries both the landmark input and all output.
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, log.Named("mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	source, err := landmarks.NewMQTTSource(publisher, cfg.MQTT.LandmarkTopic, frameBuffer, log.Named("landmarks"))
	if err != nil {
		return fmt.Errorf("init landmark source: %w", err)
	}
	defer source.Close()

	var sink stream.Sink
	if cfg.Redis.Addr != "" {
		rs, err := stream.NewRedisSink(context.Background(), stream.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer rs.Close()
		sink = rs
	}

	var button gpio.Reader
	var buttonTicks <-chan time.Time
	if cfg.Button.Pin >= 0 {
		br, err := gpio.NewRealReader(cfg.Button.Pin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer br.Close()
		button = br
		bt := time.NewTicker(cfg.Button.Poll)
		defer bt.Stop()
		buttonTicks = bt.C
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		BlinkThreshold:  cfg.BlinkThreshold,
		MinConsecFrames: cfg.MinConsecFrames,
		SessionSeconds:  cfg.SessionSeconds,
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		Broker:          cfg.MQTT.Broker,
		LandmarkTopic:   cfg.MQTT.LandmarkTopic,
		HTTPAddr:        cfg.HTTPAddr,
		RedisStream:     redisStreamName(cfg),
		ButtonPin:       cfg.Button.Pin,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("failed to publish startup event", zap.Error(err))
	}

	commands := make(chan command)
	loopDone := make(chan struct{})

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, loopController{commands: commands, done: loopDone}, cfg.SessionSeconds, log.Named("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Info("http status server listening", zap.String("addr", cfg.HTTPAddr))
	}

	log.Info("started",
		zap.String("broker", cfg.MQTT.Broker),
		zap.String("topic", cfg.MQTT.LandmarkTopic),
		zap.Float64("threshold", cfg.BlinkThreshold),
		zap.Int("min_frames", cfg.MinConsecFrames),
		zap.Int("session_s", cfg.SessionSeconds),
		zap.Duration("heartbeat", cfg.Heartbeat),
		zap.Bool("auto_start", cfg.AutoStart),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		monitor:        logic.NewMonitor(cfg.MonitorConfig()),
		publisher:      publisher,
		mqttStatus:     publisher,
		sink:           sink,
		tracker:        tracker,
		button:         button,
		buttonDebounce: cfg.Button.Debounce,
		heartbeat:      cfg.Heartbeat,
		sessionSeconds: cfg.SessionSeconds,
		autoStart:      cfg.AutoStart,
		newID:          uuid.NewString,
		now:            time.Now,
		logger:         log,
	}
	err = d.runLoop(loopInputs{
		frames:      source.Frames(),
		ticks:       ticker.C,
		buttonTicks: buttonTicks,
		commands:    commands,
		sig:         sigCh,
	})
	// Unblock control requests before the deferred HTTP shutdown waits on them.
	close(loopDone)
	return err
}

func redisStreamName(cfg *config.Config) string {
	if cfg.Redis.Addr == "" {
		return ""
	}
	if cfg.Redis.Stream == "" {
		return stream.DefaultStream
	}
	return cfg.Redis.Stream
}
