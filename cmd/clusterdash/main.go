package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/cluster/weaviate"
	"github.com/koustreak/clusterdash/internal/config"
	"github.com/koustreak/clusterdash/internal/logger"
	"github.com/koustreak/clusterdash/internal/version"
	"github.com/koustreak/clusterdash/internal/web"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clusterdash",
	Short:   "Administration dashboard for a Weaviate cluster",
	Version: version.Full(),
	Long: `clusterdash connects to a local or cloud Weaviate cluster and serves a
JSON API reporting its readiness and versions, and running read-only
diagnostic actions against it.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clusterdash %s\n", version.Version)
		fmt.Printf("  commit:  %s\n", version.Commit)
		fmt.Printf("  built:   %s\n", version.Date)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start the dashboard API server. If a cluster endpoint (or local mode) is
configured, the server connects to it at startup.`,
	RunE: runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect once and print cluster readiness and versions",
	RunE:  runStatus,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate("clusterdash version {{.Version}}\n")

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")

	serveCmd.Flags().IntP("port", "p", 0, "server port (overrides config)")
	serveCmd.Flags().String("host", "", "server host (overrides config)")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(versionCmd, serveCmd, statusCmd, configCmd)
}

// app is everything a command needs, built from config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	mgr     *cluster.Manager
	session *cluster.Session
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logger())
	logger.SetGlobal(log)

	mgr := cluster.NewManager(weaviate.NewConnector(), cluster.WithLogger(log))
	return &app{
		cfg:     cfg,
		log:     log,
		mgr:     mgr,
		session: cluster.NewSession(mgr, cfg.ClusterDefaults(), log),
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.mgr.Close(); err != nil {
			a.log.WarnWith("failed to close cluster connection", err, nil)
		}
	}()

	if cmd.Flags().Changed("host") {
		a.cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.AutoConnect() {
		if !a.session.Initialize(ctx, a.cfg.Credentials()) {
			a.log.Warn(a.session.LastError())
		}
	}

	srv := web.NewServer(web.ServerConfig{
		Addr:    a.cfg.Server.Addr(),
		Session: a.session,
		Actions: cluster.NewActions(a.session, nil),
		Logger:  a.log,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		a.log.Error("web server stopped: " + err.Error())
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.session.Initialize(ctx, a.cfg.Credentials()) {
		return fmt.Errorf("%s", a.session.LastError())
	}

	pub, _ := a.session.Snapshot()
	fmt.Printf("Endpoint:        %s (%s)\n", pub.Endpoint, pub.Mode)
	fmt.Printf("Ready:           %t\n", pub.Ready)
	fmt.Printf("Server version:  %s\n", pub.ServerVersion)
	fmt.Printf("Client version:  %s\n", pub.ClientVersion)
	return nil
}
