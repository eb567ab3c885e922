package fuzz

import (
	"context"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	grpcserver "github.com/Billy-Davies-2/kokoloko-draft/internal/grpc"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
)

func asUser(id string) context.Context {
	return auth.WithUser(context.Background(), &auth.User{ID: id})
}

// FuzzGRPCStartDraft fuzzes the gRPC StartDraft endpoint
func FuzzGRPCStartDraft(f *testing.F) {
	// Seed corpus
	f.Add("d1", "1", "Coach", "auto_silent", 0.0)
	f.Add("", "", "", "", -1.0)
	f.Add("d2", "9001", "Bot_1", "interactive", 1e9)

	f.Fuzz(func(t *testing.T, draftID, pid, name, mode string, dummies float64) {
		s := newStack(t)
		server := grpcserver.NewServer(s.drafts, s.store, s.bus)

		req, err := structpb.NewStruct(map[string]any{
			"draftId":      draftID,
			"participants": []any{map[string]any{"id": pid, "displayName": name}},
			"mode":         mode,
			"dummies":      min(dummies, 64),
		})
		if err != nil {
			t.Skip()
		}

		// Should not panic
		_, _ = server.StartDraft(asUser("boss"), req)
	})
}

// FuzzGRPCDecide fuzzes the gRPC Decide endpoint
func FuzzGRPCDecide(f *testing.F) {
	f.Add("d1", "roll", "1")
	f.Add("", "", "")
	f.Add("d1", "reroll", "boss")

	f.Fuzz(func(t *testing.T, draftID, action, actor string) {
		s := newStack(t)
		server := grpcserver.NewServer(s.drafts, s.store, s.bus)

		req, err := structpb.NewStruct(map[string]any{"draftId": draftID, "action": action})
		if err != nil {
			t.Skip()
		}
		_, _ = server.Decide(asUser(actor), req)
	})
}
