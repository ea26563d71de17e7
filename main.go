package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"course_hub_backend/internal/app"
	"course_hub_backend/internal/config"
	"course_hub_backend/pkg/configwatcher"
	"course_hub_backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configDir   string
	migrate     bool
	migrateOnly bool
	watch       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "course-hub",
		Short:         "CourseHub 课程内容服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configDir, "config", "configs", "配置文件目录")
	flags.BoolVar(&opts.migrate, "migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flags.BoolVar(&opts.migrateOnly, "migrate-only", false, "只执行数据库迁移，完成后退出")
	flags.BoolVar(&opts.watch, "watch-config", true, "配置文件变更时热更新")
	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	// .env 不存在时直接使用系统环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		return err
	}

	// 设置迁移标志
	cfg.ForceMigrate = opts.migrate || opts.migrateOnly
	cfg.MigrateOnly = opts.migrateOnly

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if opts.migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		return nil
	}

	if opts.watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			file := filepath.Join(opts.configDir, "config.yaml")
			if err := configwatcher.WatchConfig(watchCtx, file, application.ApplyConfig); err != nil {
				logger.Log.Warn("Config hot reload disabled", zap.Error(err))
			}
		}()
	}

	return application.Run()
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("course-hub: %v", err)
	}
}
