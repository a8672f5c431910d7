package main

import (
	"os"
	"os/signal"
	"syscall"

	"traitor-be/internal/api/http"
	"traitor-be/internal/catalog"
	"traitor-be/internal/config"
	"traitor-be/internal/logger"
	"traitor-be/internal/service"
	"traitor-be/internal/state"
	"traitor-be/internal/storage"
	"traitor-be/internal/storage/sqlite"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	// 加载场景目录
	sceneCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		zap.L().Fatal("加载场景目录失败", zap.Error(err))
	}

	// 历史存储是可选的
	var history storage.HistoryStore
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			zap.L().Fatal("打开历史存储失败", zap.Error(err))
		}
		history = store
	}

	matchSvc, err := service.NewMatchService(
		cfg,
		service.NewScene(sceneCatalog, logger.Named("scene")),
		history,
	)
	if err != nil {
		zap.L().Fatal("创建对局失败", zap.Error(err))
	}

	matchSvc.Start()
	defer matchSvc.Close()

	// 组装应用状态
	appState := state.NewAppState(cfg, matchSvc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- http.RunServer(appState)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zap.L().Info("收到退出信号", zap.String("signal", sig.String()))
	case err := <-errCh:
		zap.L().Error("服务器退出", zap.Error(err))
	}
}
