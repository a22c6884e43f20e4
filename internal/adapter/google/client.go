package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"GBPSync/internal/adapter"
	"GBPSync/internal/config"
	"GBPSync/internal/interfaces"
	"GBPSync/internal/metrics"
	"GBPSync/internal/model"
	"GBPSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

func init() {
	adapter.Register(model.ProviderGoogle, func(cfg *config.GoogleConfig, logger *logrus.Logger) interfaces.GMBClient {
		return NewAdapter(cfg, logger)
	})
}

// 错误响应体最多保留的字节数
const maxErrorBody = 2048

// APIError Google 返回的非 2xx
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google api 返回 %d: %s", e.StatusCode, e.Body)
}

// Adapter Google Business Profile 各资源拉取器
type Adapter struct {
	cfg        *config.GoogleConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewAdapter(cfg *config.GoogleConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewGoogleClient(cfg, logger),
		logger:     logger,
	}
}

// NewAdapterWithClient 使用外部 http.Client（测试）
func NewAdapterWithClient(cfg *config.GoogleConfig, client *http.Client, logger *logrus.Logger) *Adapter {
	return &Adapter{cfg: cfg, httpClient: client, logger: logger}
}

func (a *Adapter) pageSize(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// do 发送请求，2xx 时把响应解码到 out，非 2xx 返回 *APIError
func (a *Adapter) do(ctx context.Context, method, rawURL, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("解析 %s 响应失败: %w", req.URL.Path, err)
	}
	return nil
}

// degrade 子资源拉取失败时判断是否降级为空结果：
// 403/404 安静降级，其它非 2xx 降级并告警，网络错误不降级
func (a *Adapter) degrade(resource string, err error, fields logrus.Fields) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	metrics.IncFetchDegraded(resource, apiErr.StatusCode)
	entry := a.logger.WithFields(fields).WithField("resource", resource).WithField("status", apiErr.StatusCode)
	switch apiErr.StatusCode {
	case http.StatusForbidden, http.StatusNotFound:
		entry.Debug("资源不可用，按空结果处理")
	default:
		entry.WithField("body", apiErr.Body).Warn("资源拉取失败，按空结果处理")
	}
	return true
}

func withQuery(base, path string, q url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func setPageToken(q url.Values, pageToken string) {
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
}
