package main

import (
	"fmt"

	"eventcore/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the event bus and task queue core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	fxApp := fx.New(
		app.Module,
		fx.NopLogger,
	)

	if err := startApp(fxApp, "eventcore"); err != nil {
		return err
	}

	fmt.Println("eventcore started")
	<-fxApp.Done()

	return stopApp(fxApp, "eventcore")
}
