package strm

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"strmrefresh/internal/fileutil"
	"strmrefresh/internal/logging"
	"strmrefresh/internal/services"
)

// Writer materializes plans on disk.
type Writer struct {
	logger *slog.Logger
}

// NewWriter constructs a Writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logging.NewComponentLogger(logger, "strm")}
}

// Write creates the plan's directory tree and writes its content as UTF-8,
// replacing any existing pointer file. Created directories are left in place
// when the file write fails.
func (w *Writer) Write(ctx context.Context, plan Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(plan.Dir, 0o755); err != nil {
		return wrapFSError("mkdir", "create strm directory", err)
	}
	if err := fileutil.WriteFileAtomic(plan.Path, []byte(plan.Content), 0o644); err != nil {
		return wrapFSError("write", "write strm file", err)
	}
	logging.WithContext(ctx, w.logger).Info("strm file written",
		logging.String(logging.FieldEventType, "strm_written"),
		logging.String("strm_path", plan.Path),
		logging.String("content", plan.Content),
	)
	return nil
}

func wrapFSError(operation, message string, err error) error {
	marker := services.ErrTransient
	if errors.Is(err, fs.ErrPermission) {
		marker = services.ErrConfiguration
	}
	return services.Wrap(marker, "strm", operation, message, err)
}
