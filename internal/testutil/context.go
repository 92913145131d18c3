package testutil

import (
	"context"

	"github.com/freelanceops/billing/internal/types"
)

// SetupContext returns the context service tests run under: the default user and a
// fresh request id, so event logs and deliveries have one to record
func SetupContext() context.Context {
	ctx := types.SetUserID(context.Background(), types.DefaultUserID)
	return types.SetRequestID(ctx, types.GenerateUUID())
}
