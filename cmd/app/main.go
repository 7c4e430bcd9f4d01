package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"HeatDash/internal/di"
	"HeatDash/internal/domain/models"
	"HeatDash/internal/usecase"
	"HeatDash/pkg/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "heatdash",
		Short:         "Rolling-extremes heatmap and market breadth dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, refresh workers and scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute one view for a universe and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd, configPath)
		},
	}
	f := snapshotCmd.Flags()
	f.String("universe", "", "universe name (required)")
	f.String("view", "signals", "view to compute: heatmap, signals or breadth")
	f.Int("days", 0, "calendar days of history (0 uses the configured default)")
	f.Int("lookback", 0, "lookback in sessions (0 uses the configured default)")
	f.String("basis", string(models.BasisClose), "heatmap basis: close or intraday")
	f.Bool("color", false, "colorize JSON output")
	_ = snapshotCmd.MarkFlagRequired("universe")

	rootCmd.AddCommand(serveCmd, snapshotCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runSnapshot(cmd *cobra.Command, configPath string) error {
	f := cmd.Flags()
	name, _ := f.GetString("universe")
	view, _ := f.GetString("view")
	days, _ := f.GetInt("days")
	lookback, _ := f.GetInt("lookback")
	basis, _ := f.GetString("basis")
	color, _ := f.GetBool("color")

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	dash, cleanup, err := di.InitializeDashboard(cfg)
	if err != nil {
		return fmt.Errorf("dashboard initialization failed: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout+30*time.Second)
	defer cancel()

	d := di.RequestDefaults(cfg)
	var out interface{}
	switch view {
	case "heatmap":
		req := models.HeatmapRequest{Universe: name, Days: days, Lookback: lookback, Basis: basis}
		req.ApplyDefaults(d)
		out, err = dash.Heatmap(ctx, usecase.HeatmapParams{
			Universe: req.Universe,
			Days:     req.Days,
			Lookback: req.Lookback,
			Basis:    models.Basis(req.Basis),
		})
	case "signals":
		req := models.SignalsRequest{Universe: name, Days: days, Lookback: lookback}
		req.ApplyDefaults(d)
		out, err = dash.Signals(ctx, usecase.SignalsParams{Universe: req.Universe, Days: req.Days, Lookback: req.Lookback})
	case "breadth":
		req := models.BreadthRequest{Universe: name, Days: days, Lookback: lookback}
		req.ApplyDefaults(d)
		out, err = dash.Breadth(ctx, usecase.BreadthParams{
			Universe:   req.Universe,
			Days:       req.Days,
			Lookback:   req.Lookback,
			WindowDays: req.WindowDays,
			TopN:       req.TopN,
		})
	default:
		return fmt.Errorf("unknown view %q", view)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", view, name, err)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode %s: %w", view, err)
	}
	b = pretty.Pretty(b)
	if color {
		b = pretty.Color(b, nil)
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
