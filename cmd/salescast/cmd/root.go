package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SeekerKids/forecast-prophet-kp/internal/di"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "salescast",
	Short:         "Sales forecast operator CLI",
	Long:          `Runs batch and single-item sales forecasts and manages the event calendar.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(batchCmd, forecastCmd, categoriesCmd, calendarCmd)
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithEnv(configPath)
}

// withToolkit wires the forecasting stack for one command.
func withToolkit(fn func(tk *di.Toolkit) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tk, cleanup, err := di.InitializeToolkit(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(tk)
}
