package server

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/conf"
)

const defaultSweepInterval = time.Minute

// Sweeper 定时让到期会员失效并启用排队中的会员
type Sweeper struct {
	uc       *biz.MembershipUsecase
	interval time.Duration
	log      *log.Helper

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper 创建巡检任务，interval 未配置时每分钟一次
func NewSweeper(c *conf.Membership, uc *biz.MembershipUsecase, logger log.Logger) *Sweeper {
	interval := c.SweepInterval.Duration
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		uc:       uc,
		interval: interval,
		log:      log.NewHelper(logger),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 实现 transport.Server，阻塞直到 Stop 或 ctx 结束
func (s *Sweeper) Start(ctx context.Context) error {
	defer close(s.done)

	s.log.Infof("Membership sweeper started, interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop 结束巡检并等待当前一轮完成
func (s *Sweeper) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("Membership sweeper stopped")
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	res, err := s.uc.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithContext(ctx).Errorf("Membership sweep failed: %v", err)
		}
		return
	}
	if res.Expired > 0 || res.Promoted > 0 {
		s.log.WithContext(ctx).Infof("Membership sweep expired %d, promoted %d", res.Expired, res.Promoted)
	}
}
