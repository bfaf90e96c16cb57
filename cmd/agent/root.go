package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	loop "github.com/ppagent/internal/agent"
	"github.com/ppagent/internal/miner"
	"github.com/ppagent/internal/server"
	"github.com/ppagent/internal/uplink"
	"github.com/ppagent/internal/version"
	"github.com/ppagent/pkg/config"
	"github.com/ppagent/pkg/hostinfo"
	"github.com/ppagent/pkg/logger"
	"github.com/ppagent/pkg/metrics"
	"github.com/ppagent/pkg/signal"
	"github.com/ppagent/pkg/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "ppagent",
	Short:        "Miner telemetry agent relaying cgminer statistics to a remote collector",
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runAgent,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground | 前台运行",
	Args:  cobra.NoArgs,
	RunE:  runAgent,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"-> Config file path, default ~/.ppagent/config.json | 配置文件路径")
	// 注册分组 flag
	initUplinkFlags(rootCmd)
	initAgentFlags(rootCmd)
	initServerFlags(rootCmd)
	initLogFlags(rootCmd)

	rootCmd.AddCommand(runCmd, installCmd, configCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigWithCli(cmd.Flags(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "日志初始化失败: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	util.PrintBanner(os.Stdout, "ppagent", util.ColorCyan, "ppagent "+version.Version)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		hostinfo.NewCollector(metrics.Namespace, log.Named("host")),
	)
	agentMetrics := metrics.NewMetricFactory(metrics.NewPromRegistry(registry)).NewAgentMetrics()

	miners, err := buildMiners(cfg, log, agentMetrics)
	if err != nil {
		log.Error("invalid miner configuration", zap.Error(err))
		return err
	}

	session := uplink.New(cfg.Uplink, log.Named("uplink"), agentMetrics)

	ctx, stop := signal.NotifyContext(cmd.Context(), log)
	defer stop()

	if cfg.Server.Enable {
		httpServer := server.NewHTTPServer(cfg.Server.Addr, registry, log.Named("http"))
		if err := httpServer.Start(); err != nil {
			log.Error("start HTTP server failed", zap.Error(err))
			return err
		}
		defer func() {
			if err := httpServer.Shutdown(); err != nil {
				log.Warn("shutdown HTTP server failed", zap.Error(err))
			}
		}()
	}

	log.Info("ppagent started",
		zap.String("version", version.Version),
		zap.String("uplink", session.Addr()),
		zap.Int("miners", len(miners)),
	)

	l := loop.New(miners, session, log.Named("agent"),
		loop.WithTick(cfg.Agent.Tick),
		loop.WithMetrics(agentMetrics),
	)
	if err := l.Run(ctx); err != nil {
		log.Error("agent loop exited", zap.Error(err))
		return err
	}
	log.Info("all services shutdown successfully")
	return nil
}

func buildMiners(cfg *config.Config, log *zap.Logger, m *metrics.AgentMetrics) ([]miner.Miner, error) {
	registry := miner.NewRegistry()
	miners := make([]miner.Miner, 0, len(cfg.Miners))
	for _, mc := range cfg.Miners {
		built, err := registry.Build(mc, cfg.Remotes(mc), miner.Options{
			Logger:    log.Named("miner"),
			Metrics:   m,
			QueueSize: cfg.Agent.QueueSize,
		})
		if err != nil {
			return nil, fmt.Errorf("miner %s: %w", mc.Name, err)
		}
		log.Info("configured miner",
			zap.String("miner", built.Name()),
			zap.String("type", mc.Type),
			zap.Strings("remotes", cfg.Remotes(mc)),
		)
		miners = append(miners, built)
	}
	return miners, nil
}
