package grpc

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/go-alert-board/internal/feed"
	"github.com/mr1hm/go-alert-board/internal/geo"
	"github.com/mr1hm/go-alert-board/internal/models"
)

type AlertReader interface {
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
}

type Server struct {
	repo        AlertReader
	broadcaster *Broadcaster
	grpcServer  *grpc.Server
}

func NewServer(repo AlertReader, broadcaster *Broadcaster) *Server {
	s := &Server{
		repo:        repo,
		broadcaster: broadcaster,
		grpcServer:  grpc.NewServer(),
	}
	s.grpcServer.RegisterService(&alertServiceDesc, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("gRPC server listening", "addr", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

func (s *Server) GetAlert(ctx context.Context, req *GetAlertRequest) (*models.Alert, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	alert, err := s.repo.GetAlert(ctx, req.ID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get alert: %v", err)
	}
	if alert == nil {
		return nil, status.Errorf(codes.NotFound, "alert not found: %s", req.ID)
	}

	return alert, nil
}

// StreamAlerts forwards public events until the client goes away or the
// broadcaster is closed. Targeted nearby notifications are not streamed.
// With a viewer set, alert events are kept when the alert lies within the
// radius and comment events when the commented alert does.
func (s *Server) StreamAlerts(req *StreamAlertsRequest, stream grpc.ServerStream) error {
	radius := req.RadiusKm
	if radius <= 0 {
		radius = feed.RadiusKm
	}
	if req.Viewer != nil && !geo.Valid(*req.Viewer) {
		return status.Error(codes.InvalidArgument, "viewer coordinate is out of range")
	}

	id, ch := s.broadcaster.Subscribe("")
	defer s.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to alert stream", "subscriber_id", id)

	for {
		select {
		case <-stream.Context().Done():
			slog.Info("client disconnected from alert stream", "subscriber_id", id)
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}

			if req.Viewer != nil && !s.nearViewer(stream.Context(), e, *req.Viewer, radius) {
				continue
			}

			if err := stream.SendMsg(e); err != nil {
				slog.Error("failed to send event to stream", "error", err, "subscriber_id", id)
				return err
			}
		}
	}
}

// nearViewer reports whether the alert e refers to lies within radiusKm of
// viewer. Comment events carry only the alert id, so the alert is looked up.
func (s *Server) nearViewer(ctx context.Context, e *models.Event, viewer models.Coordinate, radiusKm float64) bool {
	alert := e.Alert
	if alert == nil && e.Comment != nil {
		a, err := s.repo.GetAlert(ctx, e.Comment.AlertID)
		if err != nil {
			slog.Warn("failed to look up commented alert", "alert_id", e.Comment.AlertID, "error", err)
			return false
		}
		alert = a
	}
	if alert == nil || alert.Location == nil {
		return false
	}
	return geo.WithinRadius(viewer, *alert.Location, radiusKm)
}
