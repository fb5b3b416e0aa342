package worker

import (
	"context"
	"errors"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	orderSweepInterval = time.Minute
	orderSweepBatch    = 200
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.OrderService != nil {
		go s.runOrderSweepLoop(ctx)
	}
	if s.consumer != nil && s.consumer.CreditService != nil {
		go s.runCreditExpiryNoticeLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runOrderSweepLoop 兜底清理超时未支付订单（单笔取消任务丢失时仍能过期）
func (s *Service) runOrderSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderService == nil {
		return
	}
	runOnce := func() {
		swept, err := s.consumer.OrderService.SweepExpiredOrders(orderSweepBatch)
		if err != nil {
			logger.Warnw("worker_order_sweep_failed", "error", err)
			return
		}
		if swept > 0 {
			logger.Infow("worker_order_sweep_done", "swept", swept)
		}
	}
	runOnce()

	ticker := time.NewTicker(orderSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runCreditExpiryNoticeLoop 周期扫描即将过期的发放记录并投递提醒任务
func (s *Service) runCreditExpiryNoticeLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.CreditService == nil {
		return
	}
	interval := time.Hour
	if s.consumer.Config != nil && s.consumer.Config.Credit.ExpirySweepMinutes > 0 {
		interval = time.Duration(s.consumer.Config.Credit.ExpirySweepMinutes) * time.Minute
	}
	runOnce := func() {
		entries, err := s.consumer.CreditService.ExpiringGrants(time.Now())
		if err != nil {
			logger.Warnw("worker_credit_expiry_scan_failed", "error", err)
			return
		}
		for _, entry := range entries {
			payload := queue.CreditExpiryNoticePayload{EntryID: entry.ID}
			if err := s.consumer.QueueClient.EnqueueCreditExpiryNotice(payload); err != nil {
				logger.Warnw("worker_credit_expiry_enqueue_failed", "entry_id", entry.ID, "error", err)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
