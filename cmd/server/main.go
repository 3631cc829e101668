package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"retailbonds/internal/app"
	apierrors "retailbonds/internal/errors"
)

func main() {
	ctx := context.Background()

	application, err := app.NewApplication(ctx)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}

	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func exitCode(err error) int {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}
