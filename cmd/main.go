package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedacia/guardian/internal/backup"
	"github.com/bytedacia/guardian/internal/bot"
	"github.com/bytedacia/guardian/internal/combat"
	"github.com/bytedacia/guardian/internal/commands"
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/countermeasure"
	"github.com/bytedacia/guardian/internal/database"
	"github.com/bytedacia/guardian/internal/dispatcher"
	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/monitor"
	"github.com/bytedacia/guardian/internal/notifier"
	"github.com/bytedacia/guardian/internal/platform"
	"github.com/bytedacia/guardian/internal/protect"
	"github.com/bytedacia/guardian/internal/restore"
	"github.com/bytedacia/guardian/internal/tracker"
	"github.com/bytedacia/guardian/internal/watchdog"
)

func main() {
	fmt.Println("Starting Guardian defense engine")

	cfg := config.LoadOrDefault("config.json")
	config.InitThresholds()

	if err := logging.InitGlobalLogger(logging.LevelInfo, cfg.Storage.LogPath); err != nil {
		panic(fmt.Sprintf("logging init failed: %v", err))
	}

	if err := database.Initialize(cfg.Storage.DatabasePath); err != nil {
		panic(fmt.Sprintf("database init failed: %v", err))
	}
	db := database.GetDB()

	store, err := backup.NewFileStore(cfg.Storage.BackupDir, db)
	if err != nil {
		panic(fmt.Sprintf("backup store init failed: %v", err))
	}

	if cfg.Bot.Token == "" {
		panic("no bot token configured; set DISCORD_TOKEN or config.json")
	}

	session, err := bot.NewSession(cfg.Bot.Token)
	if err != nil {
		panic(fmt.Sprintf("session init failed: %v", err))
	}

	client := platform.NewDiscordClient(session.Discord())

	httpPool := dispatcher.NewHTTPPool(cfg.Network.WorkerCount)
	rateLimiter := dispatcher.NewRateLimitMonitor()
	client.SetBanDispatcher(dispatcher.NewBanExecutor(
		httpPool, rateLimiter, cfg.Bot.Token, cfg.Network.APIBaseURL))

	registry := protect.NewRegistry(cfg.Bot.OwnerID, cfg.Defense.ProtectedHandle, db)
	activity := tracker.NewTracker()
	activity.SetMemberNameSource(client.MemberNames)
	scheduler := restore.NewScheduler()

	orchestrator := countermeasure.NewOrchestrator(
		client, registry, activity, store, scheduler, cfg, config.GetThresholds())
	orchestrator.SetRecorder(db)
	orchestrator.SetBlobStore(db)
	orchestrator.SetSink(notifier.NewFanOut(
		notifier.NewDiscordSink(session.Discord(), cfg.Bot.LogChannelID),
		notifier.NewMailSink(cfg.Mail),
	))

	controller := combat.NewController(activity, orchestrator, scheduler, cfg, config.GetThresholds())

	wd := watchdog.NewWatchdog(30 * time.Second)
	wd.RegisterComponent("gateway", 5*time.Minute)
	wd.RegisterComponent("sweeper", 2*time.Minute)
	session.SetHeartbeat(wd.Heartbeat)
	controller.SetHeartbeat(wd.Heartbeat)

	session.SetupEventHandlers(controller, orchestrator)

	if err := session.Connect(); err != nil {
		panic(fmt.Sprintf("gateway connect failed: %v", err))
	}
	if _, err := commands.Initialize(session, controller, registry, orchestrator, db, cfg); err != nil {
		logging.Error("Command registration failed: %v", err)
	}
	controller.StartSweeper()
	wd.Start()

	monitorStop := make(chan struct{})
	monitor.StartLogging(5*time.Minute, monitorStop)

	logging.Info("All components started, defense %s",
		map[bool]string{true: "enabled", false: "disabled"}[cfg.Defense.Enabled])

	waitForShutdown()

	close(monitorStop)
	wd.Stop()
	controller.Stop()
	scheduler.Stop()
	session.Close()
	database.Close()
	logging.Info("Shutdown complete")
	if logging.GlobalLogger != nil {
		logging.GlobalLogger.Close()
	}
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
