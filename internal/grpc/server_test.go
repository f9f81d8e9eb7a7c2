package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/mr1hm/go-alert-board/internal/models"
)

type mockReader struct {
	alerts map[string]*models.Alert
	err    error
}

func (m *mockReader) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.alerts[id], nil
}

func startTestServer(t *testing.T, reader AlertReader, b *Broadcaster) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(reader, b)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		b.Close()
		srv.Stop()
		<-done
	})
	return NewClient(conn)
}

func TestServer_GetAlert(t *testing.T) {
	reader := &mockReader{alerts: map[string]*models.Alert{
		"a1": {ID: "a1", Message: "gas leak", VerifiedVotes: 2},
	}}
	client := startTestServer(t, reader, NewBroadcaster())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := client.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if a.Message != "gas leak" || a.VerifiedVotes != 2 {
		t.Errorf("unexpected alert %+v", a)
	}

	_, err = client.GetAlert(ctx, "missing")
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	_, err = client.GetAlert(ctx, "")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestServer_GetAlertStoreError(t *testing.T) {
	client := startTestServer(t, &mockReader{err: errors.New("disk full")}, NewBroadcaster())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetAlert(ctx, "a1")
	if status.Code(err) != codes.Internal {
		t.Errorf("expected Internal, got %v", err)
	}
}

func TestServer_StreamAlertsFiltersByViewer(t *testing.T) {
	b := NewBroadcaster()
	reader := &mockReader{alerts: map[string]*models.Alert{
		"near": {ID: "near", Location: &models.Coordinate{Lat: 10, Lng: 20.05}},
		"far":  {ID: "far", Location: &models.Coordinate{Lat: 20, Lng: 30}},
	}}
	client := startTestServer(t, reader, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamAlerts(ctx, &StreamAlertsRequest{
		Viewer: &models.Coordinate{Lat: 10, Lng: 20},
	})
	if err != nil {
		t.Fatalf("StreamAlerts failed: %v", err)
	}

	// Wait for the server side to subscribe
	for b.SubscriberCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("timeout waiting for subscription")
		case <-time.After(5 * time.Millisecond):
		}
	}

	b.Broadcast(&models.Event{Kind: models.EventAlertCreated, Alert: &models.Alert{ID: "far", Location: &models.Coordinate{Lat: 20, Lng: 30}}})
	b.Broadcast(&models.Event{Kind: models.EventAlertCreated, Alert: &models.Alert{ID: "unlocated"}})
	b.Broadcast(&models.Event{Kind: models.EventAlertNearby, TargetUserID: "u1", Alert: &models.Alert{ID: "private", Location: &models.Coordinate{Lat: 10, Lng: 20}}})
	b.Broadcast(&models.Event{Kind: models.EventAlertCreated, Alert: &models.Alert{ID: "near", Location: &models.Coordinate{Lat: 10, Lng: 20.05}}})
	b.Broadcast(&models.Event{Kind: models.EventCommentCreated, Comment: &models.Comment{ID: "c0", AlertID: "far"}})
	b.Broadcast(&models.Event{Kind: models.EventCommentCreated, Comment: &models.Comment{ID: "c1", AlertID: "near"}})

	e, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if e.Kind != models.EventAlertCreated || e.Alert.ID != "near" {
		t.Errorf("expected the nearby alert first, got %+v", e)
	}

	e, err = stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if e.Kind != models.EventCommentCreated || e.Comment.ID != "c1" {
		t.Errorf("expected the comment on the nearby alert, got %+v", e)
	}
}

func TestServer_StreamAlertsRejectsBadViewer(t *testing.T) {
	client := startTestServer(t, &mockReader{}, NewBroadcaster())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamAlerts(ctx, &StreamAlertsRequest{
		Viewer: &models.Coordinate{Lat: 120, Lng: 0},
	})
	if err != nil {
		t.Fatalf("StreamAlerts failed: %v", err)
	}
	if _, err := stream.Recv(); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
