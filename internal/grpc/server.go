package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"escrow-service/internal/services"
	"escrow-service/pkg/apperrors"
)

const ServiceName = "escrow.admin.v1.AdminService"

// AdminServiceServer is the admin surface. Requests and replies are free-form
// structs so that operators can call it with grpcurl without generated stubs.
type AdminServiceServer interface {
	ApproveWithdrawal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectWithdrawal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWalletBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	Wallet     *services.WalletService
	Withdrawal *services.WithdrawalService
	Dispute    *services.DisputeService
	Logger     *zap.Logger
}

func NewServer(wallet *services.WalletService, withdrawal *services.WithdrawalService, dispute *services.DisputeService, logger *zap.Logger) *Server {
	return &Server{Wallet: wallet, Withdrawal: withdrawal, Dispute: dispute, Logger: logger}
}

func (s *Server) ApproveWithdrawal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, adminID := field(req, "withdrawalId"), field(req, "adminId")
	if id == "" || adminID == "" {
		return nil, apperrors.ToGRPC(apperrors.Validation("withdrawalId and adminId are required"))
	}
	w, err := s.Withdrawal.ApproveWithdrawal(ctx, id, adminID)
	if err != nil {
		return nil, s.fail(err, "ApproveWithdrawal")
	}
	return toStruct(w)
}

func (s *Server) RejectWithdrawal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, adminID := field(req, "withdrawalId"), field(req, "adminId")
	if id == "" || adminID == "" {
		return nil, apperrors.ToGRPC(apperrors.Validation("withdrawalId and adminId are required"))
	}
	w, err := s.Withdrawal.RejectWithdrawal(ctx, id, adminID, field(req, "reason"))
	if err != nil {
		return nil, s.fail(err, "RejectWithdrawal")
	}
	return toStruct(w)
}

func (s *Server) ResolveDispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	appID, adminID, notes := field(req, "applicationId"), field(req, "adminId"), field(req, "notes")
	if appID == "" || adminID == "" {
		return nil, apperrors.ToGRPC(apperrors.Validation("applicationId and adminId are required"))
	}

	var (
		res *services.DisputeResolution
		err error
	)
	switch field(req, "favor") {
	case "worker":
		res, err = s.Dispute.ResolveInFavorOfWorker(ctx, appID, adminID, notes)
	case "employer":
		res, err = s.Dispute.ResolveInFavorOfEmployer(ctx, appID, adminID, notes)
	default:
		return nil, apperrors.ToGRPC(apperrors.Validation("favor must be one of: worker employer"))
	}
	if err != nil {
		return nil, s.fail(err, "ResolveDispute")
	}
	return toStruct(res)
}

func (s *Server) GetWalletBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := field(req, "userId")
	if userID == "" {
		return nil, apperrors.ToGRPC(apperrors.Validation("userId is required"))
	}
	return toStruct(s.Wallet.GetWalletBalance(ctx, userID))
}

func (s *Server) fail(err error, method string) error {
	apperrors.LogError(s.Logger, err, "admin rpc failed", zap.String("method", method))
	return apperrors.ToGRPC(err)
}

func field(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.ToGRPC(apperrors.Internal(err, "encode response"))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.ToGRPC(apperrors.Internal(err, "encode response"))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, apperrors.ToGRPC(apperrors.Internal(err, "encode response"))
	}
	return out, nil
}

func unaryHandler(call func(AdminServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AdminServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is written by hand; there is no .proto for the admin surface.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ApproveWithdrawal", Handler: unaryHandler(AdminServiceServer.ApproveWithdrawal, "ApproveWithdrawal")},
		{MethodName: "RejectWithdrawal", Handler: unaryHandler(AdminServiceServer.RejectWithdrawal, "RejectWithdrawal")},
		{MethodName: "ResolveDispute", Handler: unaryHandler(AdminServiceServer.ResolveDispute, "ResolveDispute")},
		{MethodName: "GetWalletBalance", Handler: unaryHandler(AdminServiceServer.GetWalletBalance, "GetWalletBalance")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/admin/v1/admin.proto",
}

func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// LoggingInterceptor writes one line per call.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return resp, err
	}
}

// NewGRPCServer builds a server with the admin service and health checks registered.
func NewGRPCServer(srv *Server) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(srv.Logger)))
	RegisterAdminServiceServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

// StartGRPCServer initializes and starts the gRPC server
func StartGRPCServer(port string, srv *Server) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	srv.Logger.Info("gRPC server listening", zap.String("port", port))
	if err := NewGRPCServer(srv).Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
