package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"GBPSync/internal/config"

	"github.com/sirupsen/logrus"
)

// NewGoogleClient Google API 出站客户端（代理、超时、gzip 解压）
func NewGoogleClient(cfg *config.GoogleConfig, logger *logrus.Logger) *http.Client {
	return New(Options{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Proxy:   cfg.Proxy,
	}, logger)
}

// Options 出站客户端参数
type Options struct {
	Timeout time.Duration // 0 表示使用 30s
	Proxy   string
}

// New 通用HTTP客户端构建方法
func New(opts Options, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", opts.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", opts.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &gzipTransport{next: transport, logger: logger},
	}
}

// gzipTransport 显式声明 gzip 并在响应侧解压
type gzipTransport struct {
	next   http.RoundTripper
	logger *logrus.Logger
}

func (t *gzipTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.logger.WithError(err).WithField("url", req.URL.Path).Warn("gzip解压失败，返回原始响应")
		return resp, nil
	}
	resp.Body = &gzipReadCloser{Reader: gz, body: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// gzipReadCloser 关闭时同时关闭解压 reader 与原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}
