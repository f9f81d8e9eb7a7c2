// Package notify tells users near a freshly posted alert about it, based on
// the last location each user pushed.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mr1hm/go-alert-board/internal/config"
	"github.com/mr1hm/go-alert-board/internal/geo"
	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/worker"
)

// RadiusKm matches the feed radius so a notified user also sees the alert.
const RadiusKm = 50.0

type UserLister interface {
	ListUsersWithLocation(ctx context.Context) ([]models.User, error)
}

type Publisher interface {
	Broadcast(e *models.Event)
}

type Manager struct {
	cfg       *config.Config
	users     UserLister
	publisher Publisher
	pool      *worker.WorkerPool[*models.Alert]
}

func NewManager(cfg *config.Config, users UserLister, publisher Publisher) *Manager {
	return &Manager{
		cfg:       cfg,
		users:     users,
		publisher: publisher,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewWorkerPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.notifyNearby)
	m.pool.Start(ctx)
	slog.Info("notification manager started", "workers", m.cfg.Worker.Count)
}

// Dispatch queues alert for notification. It never blocks; when the queue is
// full or the manager is not running the alert is skipped.
func (m *Manager) Dispatch(alert *models.Alert) {
	if m.pool == nil || !m.pool.Submit(alert) {
		slog.Warn("nearby notification skipped", "alert_id", alert.ID)
	}
}

func (m *Manager) Stop() {
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("notification manager stopped")
}

func (m *Manager) notifyNearby(ctx context.Context, alert *models.Alert) error {
	if alert.Location == nil {
		return nil
	}

	users, err := m.users.ListUsersWithLocation(ctx)
	if err != nil {
		return fmt.Errorf("error listing users for alert %s: %w", alert.ID, err)
	}

	notified := 0
	for _, u := range users {
		if u.ID == alert.UserID || u.Location == nil {
			continue
		}
		if !geo.WithinRadius(*u.Location, *alert.Location, RadiusKm) {
			continue
		}
		if m.publisher != nil {
			m.publisher.Broadcast(&models.Event{
				Kind:         models.EventAlertNearby,
				Alert:        alert,
				TargetUserID: u.ID,
			})
		}
		notified++
	}

	slog.Debug("nearby users notified", "alert_id", alert.ID, "count", notified)
	return nil
}
