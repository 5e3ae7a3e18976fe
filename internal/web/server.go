// Package web provides the HTTP status server and session control API for
// the dryeye-sensor daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/logic"
	"github.com/sweeney/dryeye-sensor/internal/status"
)

// ErrUnavailable is returned by a Controller that can no longer accept
// requests, for example while the daemon is shutting down.
var ErrUnavailable = errors.New("session control unavailable")

// Controller starts and stops sessions. The daemon implements it by
// forwarding requests to its event loop.
type Controller interface {
	// StartSession begins a session of the given length and returns its ID.
	StartSession(ctx context.Context, durationSeconds int) (string, error)

	// StopSession finalizes the running session early.
	StopSession(ctx context.Context) (logic.Assessment, error)
}

// Server serves the status page, JSON API and live feed over HTTP.
type Server struct {
	httpServer      *http.Server
	echo            *echo.Echo
	tracker         *status.Tracker
	ctrl            Controller
	defaultDuration int
	logger          *zap.Logger

	// PushInterval is how often websocket clients receive a status update.
	PushInterval time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Server that reads state from the given tracker and
// forwards session control to ctrl.
func New(addr string, tracker *status.Tracker, ctrl Controller, defaultDuration int, logger *zap.Logger) *Server {
	s := &Server{
		tracker:         tracker,
		ctrl:            ctrl,
		defaultDuration: defaultDuration,
		logger:          logger,
		PushInterval:    time.Second,
		done:            make(chan struct{}),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/", s.handleIndex)
	e.GET("/index.html", s.handleIndex)
	e.GET("/index.json", s.handleJSON)
	e.GET("/ws", s.handleWebSocket)

	api := e.Group("/api")
	api.GET("/preview", s.handlePreview)
	api.GET("/assessment", s.handleAssessment)
	api.POST("/session/start", s.handleStart)
	api.POST("/session/stop", s.handleStop)

	s.echo = e
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: e,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown closes websocket feeds and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(c echo.Context) error {
	snap := s.tracker.Snapshot()
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return renderHTML(c.Response(), snap)
}

func (s *Server) handleJSON(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handlePreview(c echo.Context) error {
	return c.JSON(http.StatusOK, status.NewSessionJSON(s.tracker.Snapshot().Preview))
}

func (s *Server) handleAssessment(c echo.Context) error {
	a := s.tracker.Snapshot().Assessment
	if a == nil {
		return apiError(http.StatusNotFound, "no_assessment", "no session has finished yet")
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleStart(c echo.Context) error {
	duration := s.defaultDuration
	if raw := c.QueryParam("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			return apiError(http.StatusBadRequest, "invalid_duration", "duration must be a positive number of seconds")
		}
		duration = d
	}

	id, err := s.ctrl.StartSession(c.Request().Context(), duration)
	if err != nil {
		return s.controlError("start", err)
	}
	s.logger.Info("session started via http", zap.String("session_id", id), zap.Int("duration_s", duration))
	return c.JSON(http.StatusAccepted, SessionStarted{SessionID: id, DurationSeconds: duration})
}

func (s *Server) handleStop(c echo.Context) error {
	a, err := s.ctrl.StopSession(c.Request().Context())
	if err != nil {
		return s.controlError("stop", err)
	}
	s.logger.Info("session stopped via http", zap.String("session_id", a.SessionID))
	return c.JSON(http.StatusOK, a)
}

func (s *Server) controlError(op string, err error) error {
	if errors.Is(err, logic.ErrSessionState) {
		s.logger.Warn("session control rejected", zap.String("op", op), zap.Error(err))
		return apiError(http.StatusConflict, "session_state", err.Error())
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apiError(http.StatusServiceUnavailable, "unavailable", "daemon did not respond")
	}
	s.logger.Error("session control failed", zap.String("op", op), zap.Error(err))
	return apiError(http.StatusInternalServerError, "internal", err.Error())
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		s.logger.Error("http handler failed", zap.String("path", c.Path()), zap.Error(err))
		he = apiError(http.StatusInternalServerError, "internal", "internal error")
	}
	body, ok := he.Message.(*APIError)
	if !ok {
		body = &APIError{Code: http.StatusText(he.Code), Message: http.StatusText(he.Code)}
		if msg, isString := he.Message.(string); isString {
			body.Message = msg
		}
	}
	if err := c.JSON(he.Code, body); err != nil {
		s.logger.Debug("write error response", zap.Error(err))
	}
}
