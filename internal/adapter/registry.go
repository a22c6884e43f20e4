package adapter

import (
	"fmt"
	"sort"
	"sync"

	"GBPSync/internal/config"
	"GBPSync/internal/interfaces"
	"GBPSync/internal/model"

	"github.com/sirupsen/logrus"
)

// Factory 平台客户端工厂函数签名
type Factory func(cfg *config.GoogleConfig, logger *logrus.Logger) interfaces.GMBClient

var (
	mu              sync.RWMutex
	factoryRegistry = make(map[model.Provider]Factory)
)

// Register 供平台包 init 调用，注册工厂函数
func Register(provider model.Provider, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("平台%s的工厂函数不能为nil", provider))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factoryRegistry[provider]; exists {
		logrus.Warnf("平台%s的客户端已注册，将覆盖原有实现", provider)
	}
	factoryRegistry[provider] = factory
}

// GetFactory 获取指定平台的工厂函数
func GetFactory(provider model.Provider) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factoryRegistry[provider]
	return factory, ok
}

// ListFactories 列出所有已注册的平台（有序）
func ListFactories() []model.Provider {
	mu.RLock()
	defer mu.RUnlock()
	providers := make([]model.Provider, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// NewClient 按平台创建客户端实例
func NewClient(provider model.Provider, cfg *config.GoogleConfig, logger *logrus.Logger) (interfaces.GMBClient, error) {
	factory, ok := GetFactory(provider)
	if !ok {
		return nil, fmt.Errorf("平台%s未注册客户端（已注册：%v）", provider, ListFactories())
	}
	client := factory(cfg, logger)
	if client == nil {
		return nil, fmt.Errorf("平台%s工厂函数返回nil", provider)
	}
	logger.WithField("provider", provider).Info("平台客户端初始化成功")
	return client, nil
}
