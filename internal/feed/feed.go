// Package feed builds the alert list shown to a viewer and handles posting
// new alerts.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mr1hm/go-alert-board/internal/geo"
	"github.com/mr1hm/go-alert-board/internal/models"
)

const (
	// RadiusKm is the fixed proximity policy for location-aware feeds.
	RadiusKm = 50.0

	MaxMessageLength = 500

	TimestampLayout = time.RFC1123
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
}

type Publisher interface {
	Broadcast(e *models.Event)
}

// Dispatcher receives every newly posted alert, e.g. to notify nearby users.
type Dispatcher interface {
	Dispatch(a *models.Alert)
}

type Action struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Href   string `json:"href"`
}

type DisplayAlert struct {
	ID            string             `json:"id"`
	AuthorName    string             `json:"name"`
	Message       string             `json:"message"`
	Timestamp     string             `json:"timestamp"`
	CreatedAt     time.Time          `json:"created_at"`
	VerifiedVotes int                `json:"verified_votes"`
	DiscardVotes  int                `json:"discard_votes"`
	CommentsCount int                `json:"comments_count"`
	Location      *models.Coordinate `json:"location,omitempty"`
	DistanceKm    *float64           `json:"distance_km,omitempty"`
	ShareURL      string             `json:"share_url"`
	Actions       []Action           `json:"actions"`
}

type Manager struct {
	store      Store
	origin     string
	publisher  Publisher
	dispatcher Dispatcher
}

// NewManager wires a feed manager. publisher and dispatcher may be nil.
func NewManager(store Store, origin string, publisher Publisher, dispatcher Dispatcher) *Manager {
	return &Manager{
		store:      store,
		origin:     origin,
		publisher:  publisher,
		dispatcher: dispatcher,
	}
}

// Refresh fetches every alert and, when viewer is non-nil, keeps only those
// whose coordinate lies within RadiusKm. Alerts with no or malformed
// coordinates are dropped from location-aware feeds. On a store error the
// returned feed is empty.
func (m *Manager) Refresh(ctx context.Context, viewer *models.Coordinate) ([]DisplayAlert, error) {
	alerts, err := m.store.ListAlerts(ctx)
	if err != nil {
		slog.Error("feed refresh failed", "error", err)
		return []DisplayAlert{}, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}

	out := make([]DisplayAlert, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		if viewer == nil {
			out = append(out, m.display(a, nil))
			continue
		}
		if a.Location == nil || !geo.WithinRadius(*viewer, *a.Location, RadiusKm) {
			continue
		}
		out = append(out, m.display(a, viewer))
	}

	slog.Debug("feed refreshed", "fetched", len(alerts), "shown", len(out), "filtered", viewer != nil)
	return out, nil
}

// Post stores a new alert by userID. The author's current name is copied
// onto the alert.
func (m *Manager) Post(ctx context.Context, userID, message string, coord *models.Coordinate) (*models.Alert, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", models.ErrInvalidInput, MaxMessageLength)
	}
	if coord != nil && !geo.Valid(*coord) {
		return nil, fmt.Errorf("%w: invalid coordinate", models.ErrInvalidInput)
	}

	author, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	if author == nil {
		return nil, models.ErrUnknownUser
	}

	alert := &models.Alert{
		UserID:     author.ID,
		AuthorName: author.FullName,
		Message:    message,
		Location:   coord,
	}
	if err := m.store.AddAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}

	slog.Info("alert posted", "id", alert.ID, "user_id", alert.UserID, "has_location", coord != nil)

	if m.publisher != nil {
		m.publisher.Broadcast(&models.Event{Kind: models.EventAlertCreated, Alert: alert})
	}
	if m.dispatcher != nil && coord != nil {
		m.dispatcher.Dispatch(alert)
	}
	return alert, nil
}

func (m *Manager) Detail(ctx context.Context, id string) (*DisplayAlert, error) {
	a, err := m.store.GetAlert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: alert %s", models.ErrNotFound, id)
	}
	d := m.display(a, nil)
	return &d, nil
}

// Display converts a stored alert into its view form.
func (m *Manager) Display(a *models.Alert) DisplayAlert {
	return m.display(a, nil)
}

func (m *Manager) display(a *models.Alert, viewer *models.Coordinate) DisplayAlert {
	d := DisplayAlert{
		ID:            a.ID,
		AuthorName:    a.AuthorName,
		Message:       a.Message,
		Timestamp:     a.CreatedAt.Format(TimestampLayout),
		CreatedAt:     a.CreatedAt,
		VerifiedVotes: a.VerifiedVotes,
		DiscardVotes:  a.DiscardVotes,
		CommentsCount: a.CommentsCount,
		Location:      a.Location,
		ShareURL:      ShareLink(m.origin, a.ID),
		Actions:       actions(m.origin, a.ID),
	}
	if viewer != nil && a.Location != nil {
		dist := geo.DistanceKm(*viewer, *a.Location)
		d.DistanceKm = &dist
	}
	return d
}

// ShareLink returns the canonical deep link to an alert's detail page.
func ShareLink(origin, alertID string) string {
	return strings.TrimRight(origin, "/") + "/post?alertId=" + url.QueryEscape(alertID)
}

func actions(origin, alertID string) []Action {
	base := "/api/alerts/" + url.PathEscape(alertID)
	return []Action{
		{Name: "vote-verify", Method: "POST", Href: base + "/votes?kind=verify"},
		{Name: "vote-discard", Method: "POST", Href: base + "/votes?kind=discard"},
		{Name: "open-comments", Method: "GET", Href: base + "/comments"},
		{Name: "share", Method: "GET", Href: ShareLink(origin, alertID)},
	}
}
