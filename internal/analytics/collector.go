package analytics

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/config"
	controller "github.com/inkpress/inkpress/internal/db/controller/analytics"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/metrics"
)

// MaxMetadataBytes is the largest accepted metadata document.
const MaxMetadataBytes = 4096

// ErrMetadataTooLarge is returned when the metadata document exceeds MaxMetadataBytes.
var ErrMetadataTooLarge = errors.New("metadata is too large")

// Outcome tells what happened to a collected event.
type Outcome int

const (
	// Stored events were written to the database.
	Stored Outcome = iota
	// DroppedBot events came from an automated client.
	DroppedBot
	// DroppedIgnoredIP events came from an ignored address.
	DroppedIgnoredIP
)

// Event is an analytics event as sent by the frontend.
type Event struct {
	SessionID string          `json:"sessionId" validate:"required,max=64"`
	UserHash  *string         `json:"userHash"  validate:"omitempty,max=128"`
	Path      string          `json:"path"      validate:"required,max=500"`
	Kind      string          `json:"kind"      validate:"required,oneof=pageview event tool_use click share"`
	Referrer  string          `json:"referrer"  validate:"omitempty,max=500"`
	ToolName  *string         `json:"toolName"  validate:"omitempty,max=100"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Collector filters, classifies and stores analytics events.
type Collector struct {
	db      *gorm.DB
	ignored *IPMatcher
	now     func() time.Time
}

// NewCollector creates a Collector from the Analytics config.
func NewCollector(db *gorm.DB, cfg config.Analytics) (*Collector, error) {
	ignored, err := NewIPMatcher(cfg.IgnoredIPs)
	if err != nil {
		return nil, err
	}

	return &Collector{db: db, ignored: ignored, now: time.Now}, nil
}

// Dropped reports whether traffic from this client is never stored.
func (c *Collector) Dropped(userAgent, ip string) (Outcome, bool) {
	if c.ignored.Contains(ip) {
		return DroppedIgnoredIP, true
	}

	if Classify(userAgent).Bot {
		return DroppedBot, true
	}

	return Stored, false
}

// Collect stores ev unless the client is a bot or uses an ignored address.
func (c *Collector) Collect(ev Event, userAgent, ip string) (Outcome, error) {
	if outcome, dropped := c.Dropped(userAgent, ip); dropped {
		metrics.AnalyticsEvents.WithLabelValues(metrics.ResultDropped).Inc()

		return outcome, nil
	}

	if len(ev.Metadata) > MaxMetadataBytes {
		return Stored, ErrMetadataTooLarge
	}

	client := Classify(userAgent)

	record := &models.AnalyticsEvent{
		SessionID: ev.SessionID,
		UserHash:  ev.UserHash,
		Path:      ev.Path,
		Kind:      ev.Kind,
		Referrer:  ev.Referrer,
		Device:    client.Device,
		Browser:   client.Browser,
		OS:        client.OS,
		ToolName:  ev.ToolName,
		CreatedAt: c.now().UTC(),
	}

	if len(ev.Metadata) > 0 && string(ev.Metadata) != "null" {
		record.Metadata = datatypes.JSON(ev.Metadata)
	}

	if err := controller.Insert(c.db, record); err != nil {
		metrics.AnalyticsEvents.WithLabelValues(metrics.ResultFailure).Inc()
		log.Error().Err(err).Str("path", ev.Path).Msg("failed to store analytics event")

		return Stored, err
	}

	metrics.AnalyticsEvents.WithLabelValues(metrics.ResultStored).Inc()

	return Stored, nil
}
