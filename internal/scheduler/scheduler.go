package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job 定时任务
type Job func(ctx context.Context) error

// defaultJobTimeout 单次任务的默认超时
const defaultJobTimeout = 30 * time.Minute

// Scheduler cron 调度；同名任务上一轮未结束时跳过本轮
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	timezone *time.Location
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New timezone 为空时使用 UTC
func New(timezone string, logger *logrus.Logger) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("无效的时区 %s: %w", timezone, err)
		}
		loc = l
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// AddJob schedule 为标准 5 段 cron 表达式，如 "0 */6 * * *"
func (s *Scheduler) AddJob(name, schedule string, timeout time.Duration, job Job) error {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(name, timeout, job); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("定时任务失败")
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时任务 %s 失败: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("已注册定时任务")
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	s.logger.WithField("job", name).Info("定时任务开始")
	if err := job(ctx); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"job": name, "took": time.Since(start).String()}).Info("定时任务完成")
	return nil
}

// RemoveJob 删除任务
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.WithField("job", name).Info("已移除定时任务")
	}
}

func (s *Scheduler) Start() {
	s.logger.WithField("timezone", s.timezone.String()).Info("调度器启动")
	s.cron.Start()
}

// Stop 取消进行中任务的 ctx，返回的 ctx 在所有任务退出后 Done
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("调度器停止")
	done := s.cron.Stop()
	s.cancel()
	return done
}

// RunNow 立即同步执行一次
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, defaultJobTimeout, job)
}

// JobInfo 任务信息
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}

// ListJobs 按名称排序
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		if !entry.Valid() {
			continue
		}
		infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
