package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"exam-duty/config"
	"exam-duty/internal/allocation"
	"exam-duty/internal/dto"
	"exam-duty/internal/repository"
	pkgerrors "exam-duty/pkg/errors"
	"exam-duty/pkg/metrics"
	"exam-duty/pkg/redis"
)

// ── 分配模块业务错误 ──

var (
	ErrAllocationInProgress = errors.New("该考试范围正在分配中，请稍后重试")
)

// Locker 范围租约，*redis.Client 实现此接口
type Locker interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (string, error)
	ExtendLease(ctx context.Context, key, token string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, key, token string) error
}

// AllocationService 分配业务接口
type AllocationService interface {
	// Run 执行一次分配。中途终止时同时返回已完成部分（Aborted=true）与错误。
	Run(ctx context.Context, req *dto.RunAllocationRequest) (*dto.RunAllocationResponse, error)
}

type allocationService struct {
	cfg     config.AllocationConfig
	repo    *repository.Repository
	locker  Locker
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例；locker 为 nil 时按配置决定是否降级
func NewAllocationService(cfg config.AllocationConfig, repo *repository.Repository, locker Locker, rec metrics.Recorder, logger *zap.Logger) AllocationService {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &allocationService{cfg: cfg, repo: repo, locker: locker, metrics: rec, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Run：执行分配
// ═══════════════════════════════════════════════════════════
//
// 流程：
//   1. 前置校验（考区、范围、有效考试安排条数），失败不访问存储
//   2. 获取范围租约，同一范围的分配互斥；运行期间按 TTL/3 续期
//   3. 引擎串行分配，逐条写入账本；租约丢失时取消运行上下文
//   4. 汇总结果，记录指标

func (s *allocationService) Run(ctx context.Context, req *dto.RunAllocationRequest) (*dto.RunAllocationResponse, error) {
	start := time.Now()
	areq := s.toRequest(req)
	engine := allocation.NewEngine(s.repo.Roster(), s.repo.Ledger(),
		allocation.WithMinEntries(s.cfg.MinScheduleEntries))

	// 1. 前置校验
	if _, err := engine.Validate(areq); err != nil {
		s.metrics.RecordRun("rejected", time.Since(start))
		return nil, err
	}

	// 2. 范围租约
	runCtx, release, err := s.acquire(ctx, areq.Scope)
	if err != nil {
		s.metrics.RecordRun("rejected", time.Since(start))
		return nil, err
	}
	defer release()

	s.logger.Info("开始分配",
		zap.String("academic_year", areq.AcademicYear),
		zap.String("exam_type", areq.ExamType),
		zap.String("exam_year", areq.ExamYear),
		zap.Strings("blocks", areq.Blocks),
		zap.Int("schedule_entries", len(areq.Schedule)),
	)

	// 3. 执行
	result, runErr := engine.Run(runCtx, areq)
	if result == nil {
		s.metrics.RecordRun("aborted", time.Since(start))
		s.logger.Error("分配失败", zap.Error(runErr))
		return nil, runErr
	}

	// 4. 汇总
	resp := toRunResponse(result)
	s.metrics.RecordSlots("created", len(result.Created))
	s.metrics.RecordSlots("unfilled", len(result.Unfilled))
	s.metrics.RecordSlots("skipped", result.Skipped)

	var aborted *allocation.RunAbortedError
	if errors.As(runErr, &aborted) {
		resp.Aborted = true
		resp.AbortReason = aborted.Error()
		s.metrics.RecordRun("aborted", time.Since(start))
		s.logger.Error("分配中途终止",
			zap.String("date", aborted.Entry.Date),
			zap.String("subject", aborted.Entry.Subject),
			zap.String("block", aborted.Block),
			zap.String("hall", aborted.Hall),
			zap.Int("created", len(result.Created)),
			zap.Error(aborted.Err),
		)
		return resp, runErr
	}
	if runErr != nil {
		s.metrics.RecordRun("aborted", time.Since(start))
		return resp, runErr
	}

	s.metrics.RecordRun("success", time.Since(start))
	s.logger.Info("分配完成",
		zap.Int("created", resp.Stats.Created),
		zap.Int("unfilled", resp.Stats.Unfilled),
		zap.Int("skipped", resp.Stats.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// acquire 获取范围租约并启动续期，返回运行上下文与释放函数。
// 续期发现租约已丢失时，运行上下文以 redis.ErrLeaseLost 为原因取消。
func (s *allocationService) acquire(ctx context.Context, scope allocation.Scope) (context.Context, func(), error) {
	noop := func() {}
	if s.locker == nil {
		if s.cfg.RequireLease {
			return nil, nil, pkgerrors.ErrLockUnavailable
		}
		s.logger.Warn("租约服务未配置，分配在无互斥保护下执行")
		return ctx, noop, nil
	}

	key := redis.LeaseKey(scope.AcademicYear, scope.ExamType, scope.ExamYear)
	token, err := s.locker.AcquireLease(ctx, key, s.cfg.LeaseTTL)
	switch {
	case errors.Is(err, redis.ErrLeaseHeld):
		return nil, nil, ErrAllocationInProgress
	case err != nil:
		if s.cfg.RequireLease {
			return nil, nil, fmt.Errorf("%w: %v", pkgerrors.ErrLockUnavailable, err)
		}
		s.logger.Warn("获取租约失败，降级为无租约分配", zap.String("key", key), zap.Error(err))
		return ctx, noop, nil
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.renew(runCtx, key, token, stop, cancel)
	}()

	return runCtx, func() {
		close(stop)
		wg.Wait()
		cancel(nil)
		// 请求上下文可能已取消，释放使用独立超时
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer rcancel()
		if err := s.locker.ReleaseLease(rctx, key, token); err != nil {
			s.logger.Warn("释放租约失败", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// renew 每隔 LeaseTTL/3 续期一次，直到 stop 关闭或上下文结束。
// 单次续期的网络错误只记录日志，下一周期重试；租约已丢失则取消运行。
func (s *allocationService) renew(ctx context.Context, key, token string, stop <-chan struct{}, lost context.CancelCauseFunc) {
	interval := s.cfg.LeaseTTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.locker.ExtendLease(ctx, key, token, s.cfg.LeaseTTL)
			switch {
			case err == nil:
			case errors.Is(err, redis.ErrLeaseLost):
				s.logger.Error("范围租约已丢失，终止分配", zap.String("key", key))
				lost(err)
				return
			default:
				s.logger.Warn("续期租约失败", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// toRequest 组装引擎请求：范围与考区去除首尾空白，未提供的上限取配置默认值
func (s *allocationService) toRequest(req *dto.RunAllocationRequest) *allocation.Request {
	schedule := make([]allocation.ExamEntry, 0, len(req.Schedule))
	for _, e := range req.Schedule {
		schedule = append(schedule, allocation.ExamEntry{Date: e.Date, Subject: e.Subject})
	}

	caps := allocation.Caps{Associate: s.cfg.DefaultAssociateCap, Others: s.cfg.DefaultOthersCap}
	if req.Caps.Associate.Set {
		caps.Associate = req.Caps.Associate.Limit
	}
	if req.Caps.Others.Set {
		caps.Others = req.Caps.Others.Limit
	}

	blocks := make([]string, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}

	return &allocation.Request{
		Scope: allocation.Scope{
			AcademicYear: strings.TrimSpace(req.AcademicYear),
			ExamType:     strings.TrimSpace(req.ExamType),
			ExamYear:     strings.TrimSpace(req.ExamYear),
		},
		Blocks:   blocks,
		Schedule: schedule,
		Caps:     caps,
	}
}

func toRunResponse(result *allocation.Result) *dto.RunAllocationResponse {
	created := make([]dto.AssignmentResponse, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, toAssignmentResponse(&result.Created[i]))
	}
	unfilled := result.Unfilled
	if unfilled == nil {
		unfilled = []allocation.Unfilled{}
	}
	return &dto.RunAllocationResponse{
		Created:  created,
		Unfilled: unfilled,
		Stats: dto.RunStats{
			Created:  len(result.Created),
			Unfilled: len(result.Unfilled),
			Skipped:  result.Skipped,
		},
	}
}
