package capability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/script/engine"
)

// Console builds the console root binding, a single log function writing at
// Info to the logger carried by the call context, or to logger.
func Console(logger *slog.Logger) map[string]any {
	return map[string]any{
		"log": Function(func(ctx context.Context, args ...any) (any, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = fmt.Sprint(a)
			}
			engine.Logger(ctx, logger).InfoContext(ctx, strings.Join(parts, " "), "script", engine.ScriptName(ctx))
			return nil, nil
		}),
	}
}
