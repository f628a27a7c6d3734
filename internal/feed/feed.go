// Package feed fetches and decodes the three GTFS-Realtime binary feeds
// (TripUpdates, VehiclePositions, Alerts) into the core's live.Store
// shapes. Grounded on the teacher poller's Rodalies client: a plain
// *http.Client with a 15-second timeout, proto.Unmarshal over the raw
// response body, field-by-field nil checks (GTFS-RT fields are all
// optional pointers).
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/dcmshi/transit-planner/internal/model"
)

// scheduleRelationshipCancelled is GTFS-RT's
// TripDescriptor.ScheduleRelationship CANCELED value.
const scheduleRelationshipCancelled = 3

// fetchTimeout is the live-feed hard timeout: 15 seconds per §5.
const fetchTimeout = 15 * time.Second

// Client fetches the three live feeds over HTTP. A zero-value URL disables
// that feed's fetch (Fetch* returns an empty result, not an error).
type Client struct {
	httpClient          *http.Client
	tripUpdatesURL      string
	vehiclePositionsURL string
	alertsURL           string
}

// NewClient builds a feed Client. Any URL may be empty to skip that feed.
func NewClient(tripUpdatesURL, vehiclePositionsURL, alertsURL string) *Client {
	return &Client{
		httpClient:          &http.Client{Timeout: fetchTimeout},
		tripUpdatesURL:      tripUpdatesURL,
		vehiclePositionsURL: vehiclePositionsURL,
		alertsURL:           alertsURL,
	}
}

// FetchTripUpdates decodes the TripUpdates feed into a map keyed by
// trip_id, reading only trip_id, route_id, schedule_relationship, and each
// stop_time_update's stop_id/departure.delay.
func (c *Client) FetchTripUpdates(ctx context.Context) (map[string]model.LiveTripUpdate, error) {
	if c.tripUpdatesURL == "" {
		return map[string]model.LiveTripUpdate{}, nil
	}

	msg, err := c.fetchFeed(ctx, c.tripUpdatesURL)
	if err != nil {
		return nil, fmt.Errorf("fetch trip updates: %w", err)
	}

	now := time.Now().UTC()
	out := make(map[string]model.LiveTripUpdate)
	for _, entity := range msg.Entity {
		tu := entity.TripUpdate
		if tu == nil || tu.Trip == nil || tu.Trip.TripId == nil {
			continue
		}

		update := model.LiveTripUpdate{
			TripID:             *tu.Trip.TripId,
			StopDelayOverrides: make(map[string]int),
			FetchedAt:          now,
		}
		if tu.Trip.RouteId != nil {
			update.RouteID = *tu.Trip.RouteId
		}
		if tu.Trip.ScheduleRelationship != nil && int32(*tu.Trip.ScheduleRelationship) == scheduleRelationshipCancelled {
			update.IsCancelled = true
		}

		for _, stu := range tu.StopTimeUpdate {
			if stu.StopId == nil {
				continue
			}
			if stu.Departure != nil && stu.Departure.Delay != nil {
				update.StopDelayOverrides[*stu.StopId] = int(*stu.Departure.Delay)
			}
		}

		out[update.TripID] = update
	}
	return out, nil
}

// FetchVehiclePositions decodes the VehiclePositions feed into a map keyed
// by trip_id, for the trip_ids that carry one.
func (c *Client) FetchVehiclePositions(ctx context.Context) (map[string]model.VehiclePosition, error) {
	if c.vehiclePositionsURL == "" {
		return map[string]model.VehiclePosition{}, nil
	}

	msg, err := c.fetchFeed(ctx, c.vehiclePositionsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicle positions: %w", err)
	}

	out := make(map[string]model.VehiclePosition)
	for _, entity := range msg.Entity {
		v := entity.Vehicle
		if v == nil || v.Trip == nil || v.Trip.TripId == nil || v.Position == nil {
			continue
		}
		tripID := *v.Trip.TripId
		pos := model.VehiclePosition{TripID: tripID}
		if v.Position.Latitude != nil {
			pos.Lat = float64(*v.Position.Latitude)
		}
		if v.Position.Longitude != nil {
			pos.Lon = float64(*v.Position.Longitude)
		}
		if v.Timestamp != nil {
			pos.Timestamp = time.Unix(int64(*v.Timestamp), 0).UTC()
		} else {
			pos.Timestamp = time.Now().UTC()
		}
		out[tripID] = pos
	}
	return out, nil
}

// FetchAlerts decodes the Alerts feed, reading informed_entity route_id
// and stop_id and the first translation of header_text/description_text.
func (c *Client) FetchAlerts(ctx context.Context) ([]model.ServiceAlert, error) {
	if c.alertsURL == "" {
		return nil, nil
	}

	msg, err := c.fetchFeed(ctx, c.alertsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}

	now := time.Now().UTC()
	var out []model.ServiceAlert
	for _, entity := range msg.Entity {
		a := entity.Alert
		if a == nil || entity.Id == nil {
			continue
		}

		alert := model.ServiceAlert{ID: *entity.Id, FetchedAt: now}
		alert.Header = firstTranslation(a.HeaderText)
		alert.Description = firstTranslation(a.DescriptionText)

		for _, ie := range a.InformedEntity {
			if ie.RouteId != nil {
				alert.AffectedRouteIDs = append(alert.AffectedRouteIDs, *ie.RouteId)
			}
			if ie.StopId != nil {
				alert.AffectedStopIDs = append(alert.AffectedStopIDs, *ie.StopId)
			}
		}
		out = append(out, alert)
	}
	return out, nil
}

func firstTranslation(ts *gtfs.TranslatedString) string {
	if ts == nil || len(ts.Translation) == 0 {
		return ""
	}
	for _, t := range ts.Translation {
		if t.Text != nil {
			return *t.Text
		}
	}
	return ""
}

func (c *Client) fetchFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", model.ErrTransientFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrTransientFetch, err)
	}

	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: decode protobuf: %v", model.ErrTransientFetch, err)
	}
	return msg, nil
}
