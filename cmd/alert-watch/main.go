// Command alert-watch follows the live alert stream of a running alert-board
// server over gRPC and logs every event. Set WATCH_LAT and WATCH_LNG to only
// see alerts near that point.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	internalgrpc "github.com/mr1hm/go-alert-board/internal/grpc"
	"github.com/mr1hm/go-alert-board/internal/logging"
	"github.com/mr1hm/go-alert-board/internal/models"
)

func main() {
	_ = godotenv.Load()

	logging.Setup(getEnv("LOG_LEVEL", "info"))

	addr := getEnv("WATCH_ADDR", "localhost:50051")
	req := &internalgrpc.StreamAlertsRequest{}
	if lat, lng := os.Getenv("WATCH_LAT"), os.Getenv("WATCH_LNG"); lat != "" && lng != "" {
		la, err1 := strconv.ParseFloat(lat, 64)
		ln, err2 := strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil {
			logging.Fatalf("invalid WATCH_LAT/WATCH_LNG: %q, %q", lat, lng)
		}
		req.Viewer = &models.Coordinate{Lat: la, Lng: ln}
	}
	if r := os.Getenv("WATCH_RADIUS_KM"); r != "" {
		radius, err := strconv.ParseFloat(r, 64)
		if err != nil {
			logging.Fatalf("invalid WATCH_RADIUS_KM: %q", r)
		}
		req.RadiusKm = radius
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logging.Fatalf("failed to connect to %s: %v", addr, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := internalgrpc.NewClient(conn).StreamAlerts(ctx, req)
	if err != nil {
		logging.Fatalf("failed to open alert stream: %v", err)
	}

	slog.Info("watching alerts", "addr", addr, "viewer", req.Viewer)

	for {
		e, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				slog.Info("alert stream closed")
				return
			}
			logging.Fatalf("alert stream error: %v", err)
		}

		attrs := []any{"kind", e.Kind}
		if e.Alert != nil {
			attrs = append(attrs, "alert_id", e.Alert.ID, "name", e.Alert.AuthorName, "message", e.Alert.Message,
				"verified", e.Alert.VerifiedVotes, "discarded", e.Alert.DiscardVotes)
		}
		if e.Comment != nil {
			attrs = append(attrs, "alert_id", e.Comment.AlertID, "comment", e.Comment.Text)
		}
		slog.Info("event", attrs...)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
