package feed

import (
	"time"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/report"
)

const (
	EventTypeReportSubmitted = "report_submitted"
	EventTypePing            = "ping"
	EventTypePong            = "pong"
)

// Event is one message on the analyst feed.
type Event struct {
	Type              string     `json:"type"`
	ReportID          string     `json:"report_id,omitempty"`
	DefaultLocation   *geo.Point `json:"default_location,omitempty"`
	CorrectedLocation *geo.Point `json:"corrected_location,omitempty"`
	ErrorMeters       float64    `json:"error_meters,omitempty"`
	GeohashCell       string     `json:"geohash_cell,omitempty"`
	Timestamp         int64      `json:"timestamp"`
}

// NewReportEvent builds the feed event for a stored report.
func NewReportEvent(r *report.LocationReport) *Event {
	defaultLoc := r.DefaultLocation
	correctedLoc := r.CorrectedLocation
	return &Event{
		Type:              EventTypeReportSubmitted,
		ReportID:          r.ID,
		DefaultLocation:   &defaultLoc,
		CorrectedLocation: &correctedLoc,
		ErrorMeters:       r.ErrorMeters(),
		GeohashCell:       r.GeohashCell,
		Timestamp:         r.Timestamp.Unix(),
	}
}

// NewPongEvent answers a client ping.
func NewPongEvent() *Event {
	return &Event{
		Type:      EventTypePong,
		Timestamp: time.Now().Unix(),
	}
}
