package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mr1hm/go-alert-board/internal/models"
)

const (
	serviceName        = "alertboard.v1.AlertService"
	getAlertMethod     = "/" + serviceName + "/GetAlert"
	streamAlertsMethod = "/" + serviceName + "/StreamAlerts"
)

type GetAlertRequest struct {
	ID string `json:"id"`
}

// StreamAlertsRequest narrows a live stream. With a Viewer set, events that
// carry an alert are delivered only when the alert lies within RadiusKm of
// the viewer; a zero RadiusKm means the feed radius.
type StreamAlertsRequest struct {
	Viewer   *models.Coordinate `json:"viewer,omitempty"`
	RadiusKm float64            `json:"radius_km,omitempty"`
}

type AlertServiceServer interface {
	GetAlert(ctx context.Context, req *GetAlertRequest) (*models.Alert, error)
	StreamAlerts(req *StreamAlertsRequest, stream grpc.ServerStream) error
}

var alertServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAlert",
			Handler:    getAlertHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamAlerts",
			Handler:       streamAlertsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alertboard/v1/alerts.proto",
}

func getAlertHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAlertRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AlertServiceServer).GetAlert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getAlertMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).GetAlert(ctx, req.(*GetAlertRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamAlertsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamAlertsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AlertServiceServer).StreamAlerts(in, stream)
}

// Client calls AlertService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	out := new(models.Alert)
	err := c.cc.Invoke(ctx, getAlertMethod, &GetAlertRequest{ID: id}, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StreamAlerts(ctx context.Context, req *StreamAlertsRequest) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &alertServiceDesc.Streams[0], streamAlertsMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

// EventStream is the client side of StreamAlerts.
type EventStream struct {
	stream grpc.ClientStream
}

func (s *EventStream) Recv() (*models.Event, error) {
	e := new(models.Event)
	if err := s.stream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}
