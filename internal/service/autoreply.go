package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"GBPSync/internal/interfaces"
	"GBPSync/internal/metrics"

	"github.com/sirupsen/logrus"
)

// AutoReplyDispatcher 有界队列 + 后台 worker；队列满时丢弃并告警，失败只记录
type AutoReplyDispatcher struct {
	replier interfaces.AutoReplier
	queue   chan string
	workers int
	timeout time.Duration
	logger  *logrus.Logger
	wg      sync.WaitGroup
}

func NewAutoReplyDispatcher(replier interfaces.AutoReplier, workers, queueSize int, timeout time.Duration, logger *logrus.Logger) *AutoReplyDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AutoReplyDispatcher{
		replier: replier,
		queue:   make(chan string, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Enqueue 非阻塞入队
func (d *AutoReplyDispatcher) Enqueue(reviewID string) bool {
	select {
	case d.queue <- reviewID:
		metrics.IncAutoReply("queued")
		return true
	default:
		metrics.IncAutoReply("dropped")
		return false
	}
}

// Start 启动 worker，ctx 取消后处理完当前任务即退出
func (d *AutoReplyDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-d.queue:
					d.process(ctx, id)
				}
			}
		}()
	}
	d.logger.WithField("workers", d.workers).Info("自动回复 worker 已启动")
}

// Wait 等待 worker 退出
func (d *AutoReplyDispatcher) Wait() {
	d.wg.Wait()
}

func (d *AutoReplyDispatcher) process(ctx context.Context, reviewID string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncAutoReply("panic")
			d.logger.WithField("review_id", reviewID).Errorf("自动回复 panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.replier.ProcessAutoReply(ctx, reviewID); err != nil {
		metrics.IncAutoReply("failed")
		d.logger.WithError(err).WithField("review_id", reviewID).Warn("自动回复失败")
		return
	}
	metrics.IncAutoReply("ok")
}

// WebhookAutoReplier 把 {review_id} POST 给自动回复服务
type WebhookAutoReplier struct {
	url    string
	client *http.Client
}

func NewWebhookAutoReplier(url string, client *http.Client) *WebhookAutoReplier {
	return &WebhookAutoReplier{url: url, client: client}
}

func (w *WebhookAutoReplier) ProcessAutoReply(ctx context.Context, reviewID string) error {
	body, err := json.Marshal(map[string]string{"review_id": reviewID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构建自动回复请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用自动回复服务失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("自动回复服务返回 %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
