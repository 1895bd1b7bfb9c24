package analytics

//go:generate mockgen -destination=mocks/mock_analytics.go -package=analytics_mocks github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics Service,HTTPClient
import (
	"io"
	"net/http"
)

// Service
type Service interface {
	Disable()
	Enable()
	EmitEvent(event TrackEvent)
	NewGDSProjCreatedEvent(projection string) TrackEvent
	NewGDSProjDropEvent(projection string) TrackEvent
	NewStartupEvent(startupEventInfo StartupEventInfo) TrackEvent
	NewToolsEvent(toolsUsed string) TrackEvent
	NewAlgorithmEvent(kind string, projection string) TrackEvent
}

// dummy http client interface for our testing purposes
type HTTPClient interface {
	Post(url, contentType string, body io.Reader) (*http.Response, error)
}
