package usecase

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/task-tracker/internal/storage"
)

// removeObjects deletes attachment objects whose rows are already gone.
// Failures only leave orphaned bytes behind, so they are logged and skipped.
func removeObjects(ctx context.Context, store storage.Store, logger *slog.Logger, keys []string) {
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			logger.WarnContext(ctx, "delete attachment object", "key", key, "error", err)
		}
	}
}
