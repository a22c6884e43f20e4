package service

import (
	"GBPSync/internal/repository"

	"gorm.io/gorm"
)

// Repositories 服务层依赖的全部仓储
type Repositories struct {
	Accounts  repository.AccountRepository
	Locations repository.LocationRepository
	Reviews   repository.ReviewRepository
	Media     repository.MediaRepository
	Insights  repository.InsightsRepository
	SyncRuns  repository.SyncRunRepository
	Dashboard repository.DashboardRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Accounts:  repository.NewAccountRepository(db),
		Locations: repository.NewLocationRepository(db),
		Reviews:   repository.NewReviewRepository(db),
		Media:     repository.NewMediaRepository(db),
		Insights:  repository.NewInsightsRepository(db),
		SyncRuns:  repository.NewSyncRunRepository(db),
		Dashboard: repository.NewDashboardRepository(db),
	}
}
