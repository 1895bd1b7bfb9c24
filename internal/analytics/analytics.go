package analytics

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	eventStartup        = "SERVER_STARTUP"
	eventTools          = "TOOL_USED"
	eventGDSProjCreated = "GDS_PROJ_CREATED"
	eventGDSProjDropped = "GDS_PROJ_DROPPED"
	eventAlgorithmRun   = "ALGORITHM_RUN"
)

// TrackEvent is a single usage event.
type TrackEvent struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// StartupEventInfo describes the process at startup.
type StartupEventInfo struct {
	DatabaseName  string
	GDSInstalled  bool
	ReadOnly      bool
	Version       string
	ProjectionCnt int
}

type analyticsService struct {
	endpoint   string
	client     HTTPClient
	distinctID string
	enabled    atomic.Bool
}

// NewService creates an analytics service posting events to endpoint.
// An empty endpoint leaves the service disabled.
func NewService(endpoint string, client HTTPClient) Service {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	s := &analyticsService{
		endpoint:   endpoint,
		client:     client,
		distinctID: uuid.NewString(),
	}
	if endpoint != "" {
		s.enabled.Store(true)
	}
	return s
}

func (s *analyticsService) Disable() {
	slog.Info("disabling analytics")
	s.enabled.Store(false)
}

func (s *analyticsService) Enable() {
	if s.endpoint == "" {
		slog.Warn("analytics endpoint not configured, analytics stays disabled")
		return
	}
	s.enabled.Store(true)
}

// EmitEvent sends the event asynchronously. Failures are logged and dropped.
func (s *analyticsService) EmitEvent(event TrackEvent) {
	if !s.enabled.Load() {
		return
	}
	body, err := json.Marshal([]TrackEvent{event})
	if err != nil {
		slog.Debug("failed to marshal analytics event", "event", event.Event, "error", err)
		return
	}
	go s.send(event.Event, body)
}

func (s *analyticsService) send(name string, body []byte) {
	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("failed to send analytics event", "event", name, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		slog.Debug("analytics endpoint rejected event", "event", name, "status", resp.StatusCode)
	}
}

func (s *analyticsService) NewGDSProjCreatedEvent(projection string) TrackEvent {
	return s.newEvent(eventGDSProjCreated, map[string]any{"projection": projection})
}

func (s *analyticsService) NewGDSProjDropEvent(projection string) TrackEvent {
	return s.newEvent(eventGDSProjDropped, map[string]any{"projection": projection})
}

func (s *analyticsService) NewStartupEvent(info StartupEventInfo) TrackEvent {
	return s.newEvent(eventStartup, map[string]any{
		"database":     info.DatabaseName,
		"gdsInstalled": info.GDSInstalled,
		"readOnly":     info.ReadOnly,
		"version":      info.Version,
		"projections":  info.ProjectionCnt,
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
	})
}

func (s *analyticsService) NewToolsEvent(toolsUsed string) TrackEvent {
	return s.newEvent(eventTools, map[string]any{"tools_used": toolsUsed})
}

func (s *analyticsService) NewAlgorithmEvent(kind string, projection string) TrackEvent {
	return s.newEvent(eventAlgorithmRun, map[string]any{"kind": kind, "projection": projection})
}

func (s *analyticsService) newEvent(name string, props map[string]any) TrackEvent {
	props["distinct_id"] = s.distinctID
	props["$insert_id"] = uuid.NewString()
	props["time"] = time.Now().Unix()
	return TrackEvent{Event: name, Properties: props}
}
