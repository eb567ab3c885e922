package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/session"
)

// Server implements the gRPC DraftService
type Server struct {
	drafts *session.Manager
	store  dal.DraftDAL
	bus    pubsub.Publisher
}

// NewServer creates a new gRPC server
func NewServer(drafts *session.Manager, store dal.DraftDAL, bus pubsub.Publisher) *Server {
	return &Server{drafts: drafts, store: store, bus: bus}
}

// Register adds the draft service and the standard health service to s
func Register(s *grpc.Server, srv *Server) *health.Server {
	s.RegisterService(&serviceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// AuthInterceptor resolves the bearer token in the "authorization" metadata.
// Calls without a token proceed anonymously and fail authorization later.
func AuthInterceptor(a auth.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		for _, v := range md.Get("authorization") {
			token, ok := strings.CutPrefix(v, "Bearer ")
			if !ok || token == "" {
				continue
			}
			user, err := a.Authenticate(ctx, token)
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, "invalid token")
			}
			ctx = auth.WithUser(ctx, user)
			break
		}
		return handler(ctx, req)
	}
}

type draftRequest struct {
	DraftID string `json:"draftId"`
}

type decideRequest struct {
	DraftID string       `json:"draftId"`
	Action  draft.Action `json:"action"`
}

func actor(ctx context.Context) string {
	if u := auth.UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

func decode(in *structpb.Struct, v any) error {
	if err := fromStruct(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) StartDraft(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req session.StartRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	logger.Info("gRPC: Starting draft", "draft_id", req.DraftID, "participants", len(req.Participants))
	snap, err := s.drafts.Start(ctx, actor(ctx), req)
	if err != nil {
		logger.Error("gRPC: Failed to start draft", "error", err)
		return nil, toStatus(err)
	}
	return reply(snap)
}

func (s *Server) GetState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	logger.Debug("gRPC: Getting draft state", "draft_id", req.DraftID)
	st, err := s.drafts.Status(req.DraftID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(st)
}

func (s *Server) GetSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	standings, err := s.drafts.Summary(req.DraftID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"standings": standings})
}

func (s *Server) GetOdds(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	odds, err := s.drafts.Odds(req.DraftID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(odds)
}

func (s *Server) ListPicks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	picks, err := s.store.ListPicks(ctx, req.DraftID)
	if err != nil {
		logger.Error("gRPC: Failed to list picks", "error", err)
		return nil, status.Error(codes.Internal, "failed to list picks")
	}
	if picks == nil {
		picks = []models.PickRecord{}
	}
	return reply(map[string]any{"picks": picks})
}

func (s *Server) Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req decideRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	logger.Info("gRPC: Decision", "draft_id", req.DraftID, "action", req.Action, "actor", actor(ctx))
	if err := s.drafts.Decide(ctx, req.DraftID, actor(ctx), req.Action); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"accepted": true})
}

func (s *Server) Resume(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.drafts.Resume(ctx, req.DraftID, actor(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"resumed": true})
}

func (s *Server) ToggleMode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	mode, err := s.drafts.ToggleMode(ctx, req.DraftID, actor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"mode": mode})
}

// WatchEvents streams draft events until the client goes away
func (s *Server) WatchEvents(in *structpb.Struct, stream grpc.ServerStream) error {
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return err
	}

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)
	logger.Debug("gRPC: Event stream opened", "draft_id", req.DraftID)

	// headers tell the client the subscription is live
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if req.DraftID != "" && ev.DraftID != req.DraftID {
				continue
			}
			out, err := toStruct(ev)
			if err != nil {
				logger.Warn("gRPC: Failed to encode event", "type", ev.Type, "error", err)
				continue
			}
			if err := stream.SendMsg(out); err != nil {
				return err
			}
		}
	}
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, session.ErrForbidden), errors.Is(err, prompt.ErrNotAuthorized):
		code = codes.PermissionDenied
	case errors.Is(err, session.ErrDraftExists):
		code = codes.AlreadyExists
	case errors.Is(err, prompt.ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, prompt.ErrInvalidAction), errors.Is(err, draft.ErrNoParticipants), errors.Is(err, draft.ErrBadParticipant):
		code = codes.InvalidArgument
	case errors.Is(err, session.ErrNotPaused),
		errors.Is(err, draft.ErrDraftInactive),
		errors.Is(err, draft.ErrAlreadyRunning),
		errors.Is(err, prompt.ErrNoPendingPrompt):
		code = codes.FailedPrecondition
	}
	if code == codes.Internal {
		logger.Error("gRPC: Internal error", "error", err)
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
