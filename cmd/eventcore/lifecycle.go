package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"
)

func startApp(app *fx.App, serviceName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s: %w", serviceName, err)
	}
	return nil
}

func stopApp(app *fx.App, serviceName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop %s: %w", serviceName, err)
	}
	return nil
}
