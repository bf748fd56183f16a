/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mautops/meeting-gin/internal/api"
	"github.com/mautops/meeting-gin/internal/config"
	"github.com/mautops/meeting-gin/internal/container"
	"github.com/mautops/meeting-gin/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Meeting Gin API server.
The server will listen on the configured host and port,
and provide REST API interfaces for meeting request management.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 监听配置文件变更,热更新日志级别
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				if level, err := logrus.ParseLevel(newCfg.Log.Level); err == nil {
					api.SetLoggerLevel(level)
				}
			})
			if err := watcher.Start(); err != nil {
				log.Printf("config watcher disabled: %v", err)
			} else {
				defer watcher.Stop()
			}
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 初始化服务
		auditLogSvc := service.NewAuditLogService(ctr.AuditLogRepository())
		meetingSvc := service.NewMeetingService(ctr.MeetingRepository(), ctr.StateHistoryRepository(), ctr.NotifyService(), auditLogSvc)
		approvalSvc := service.NewApprovalService(ctr.MeetingRepository(), ctr.ApprovalEntryRepository(), ctr.StateHistoryRepository(), ctr.NotifyService(), auditLogSvc)
		querySvc := service.NewQueryService(ctr.MeetingRepository(), ctr.StateHistoryRepository(), ctr.PendingCache())

		// 5. 初始化控制器
		meetingController := api.NewMeetingController(meetingSvc, approvalSvc, querySvc)

		// 6. 设置路由
		router := api.SetupRoutes(cfg, ctr.DB(), ctr.TokenValidator(), ctr.Hub(), meetingController)

		// 7. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
