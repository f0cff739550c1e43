package ackbus

import (
	"context"
	"fmt"
	"time"

	"github.com/maxpert/marmot-pdm/telemetry"
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ackServiceName and ackMethodName identify the hand-registered RPC the
// gRPC transport speaks. There is no protoc-generated stub backing this
// service: the wire payload is a well-known structpb.Struct carrying
// "vbucket_id" and "seqno" fields, and the response is the well-known
// empty message. This keeps the RPC on real generated wire types without
// fabricating a .pb.go file this repo has no descriptor bytes for.
const (
	ackServiceName = "pdm.AckService"
	ackMethodName  = "SendAck"
	ackFullMethod  = "/" + ackServiceName + "/" + ackMethodName
)

// AckServer is implemented by whatever on a node applies an inbound HPS
// ack to the owning vbucket's replication bookkeeping.
type AckServer interface {
	HandleAck(vbid vbucket.ID, seqno int64) error
}

// RegisterAckServer wires srv into a grpc.Server under the hand-rolled
// AckService descriptor.
func RegisterAckServer(s *grpc.Server, srv AckServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ackServiceName,
		HandlerType: (*AckServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: ackMethodName,
				Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					req := &structpb.Struct{}
					if err := dec(req); err != nil {
						return nil, err
					}
					vbid, seqno, err := decodeAckRequest(req)
					if err != nil {
						return nil, err
					}
					if err := srv.HandleAck(vbid, seqno); err != nil {
						return nil, err
					}
					return &emptypb.Empty{}, nil
				},
			},
		},
		Streams: []grpc.StreamDesc{},
	}, srv)
}

func encodeAckRequest(vbid vbucket.ID, seqno int64) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"vbucket_id": float64(vbid),
		"seqno":      float64(seqno),
	})
}

func decodeAckRequest(req *structpb.Struct) (vbucket.ID, int64, error) {
	fields := req.GetFields()
	vbidField, ok := fields["vbucket_id"]
	if !ok {
		return 0, 0, fmt.Errorf("ackbus: missing vbucket_id field")
	}
	seqnoField, ok := fields["seqno"]
	if !ok {
		return 0, 0, fmt.Errorf("ackbus: missing seqno field")
	}
	return vbucket.ID(vbidField.GetNumberValue()), int64(seqnoField.GetNumberValue()), nil
}

// GRPCTransport sends HPS acks to a fixed peer address over gRPC, using
// the hand-registered AckService descriptor above. Grounded on the
// cmux-multiplexed server shape in the teacher's grpc/server.go, mirrored
// here on the client side: a lazily-dialed, lock-free *grpc.ClientConn
// reused across calls.
type GRPCTransport struct {
	conn   *grpc.ClientConn
	target string
}

// NewGRPCTransport builds a client for target (host:port) without dialing;
// the connection is established on the first SendAck.
func NewGRPCTransport(target string) (*GRPCTransport, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.WaitForReady(false)),
	)
	if err != nil {
		return nil, fmt.Errorf("ackbus: dial %s: %w", target, err)
	}
	return &GRPCTransport{conn: conn, target: target}, nil
}

func (t *GRPCTransport) SendAck(ctx context.Context, vbid vbucket.ID, seqno int64) error {
	req, err := encodeAckRequest(vbid, seqno)
	if err != nil {
		return err
	}

	reply := &emptypb.Empty{}
	start := time.Now()
	err = t.conn.Invoke(ctx, ackFullMethod, req, reply)
	telemetry.AckSendSeconds.With("grpc").Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.AcksSentTotal.With("grpc", "error").Inc()
		log.Warn().Err(err).Str("target", t.target).Uint64("vbucket", uint64(vbid)).
			Int64("seqno", seqno).Msg("ackbus: gRPC ack send failed")
		return err
	}
	telemetry.AcksSentTotal.With("grpc", "ok").Inc()
	return nil
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}
