package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/api"
	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/Louistrash/kaartmodellen/internal/model"
	"github.com/Louistrash/kaartmodellen/internal/service"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logrus.WithError(err).Warn("failed to close repository")
		}
	}()

	if err := model.SeedDemoDealers(context.Background(), repo, cfg); err != nil {
		logrus.WithError(err).Warn("failed to seed demo dealers")
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	dispatcher := llm.NewDispatcher(llm.OptionsFromConfig(cfg))
	dealerService := service.NewDealerService(repo, dispatcher, store, cfg)
	httpHandler := api.NewHTTPHandler(cfg, dealerService, dispatcher)

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(httpHandler)
	api.MountLocalFiles(r, cfg, store)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logrus.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  900 * time.Second,
		WriteTimeout: 900 * time.Second,
		IdleTimeout:  1200 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("服务器关闭失败")
	}
	logrus.Info("服务器已关闭")
}
