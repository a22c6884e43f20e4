package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider 外部账号提供方
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderYouTube Provider = "youtube"
)

// SyncType 同步类型：full 跟随全部 nextPageToken，incremental 只取每个资源的第一页
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// ParseSyncType 空值按 incremental 处理
func ParseSyncType(s string) (SyncType, bool) {
	switch SyncType(s) {
	case SyncTypeFull:
		return SyncTypeFull, true
	case SyncTypeIncremental, "":
		return SyncTypeIncremental, true
	default:
		return "", false
	}
}

// 评论状态
const (
	ReviewStatusPending  = "pending"
	ReviewStatusReplied  = "replied"
	ReviewStatusFlagged  = "flagged"
	ReviewStatusArchived = "archived"
)

// 评论情感（由星级推导）
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// 同步记录状态
const (
	SyncRunRunning   = "running"
	SyncRunCompleted = "completed"
	SyncRunFailed    = "failed"
)

// Account 外部账号连接（每个 provider+租户 一行），断开时只停用不删除
type Account struct {
	ID                string     `gorm:"column:id;type:uuid;primaryKey;comment:主键"`
	UserID            string     `gorm:"column:user_id;type:varchar(64);not null;index;uniqueIndex:uq_account_user_provider,priority:1;comment:所属用户"`
	Provider          Provider   `gorm:"column:provider;type:varchar(16);not null;uniqueIndex:uq_account_user_provider,priority:2;comment:google/youtube"`
	ProviderAccountID string     `gorm:"column:provider_account_id;type:varchar(128);not null;uniqueIndex:uq_account_user_provider,priority:3;comment:平台侧账号ID"`
	AccountName       string     `gorm:"column:account_name;type:varchar(128);comment:平台资源名 accounts/{id}"`
	DisplayName       string     `gorm:"column:display_name;type:varchar(256);comment:展示名"`
	Email             string     `gorm:"column:email;type:varchar(256);comment:授权邮箱"`
	AccessToken       string     `gorm:"column:access_token;type:text;comment:访问令牌"`
	RefreshToken      string     `gorm:"column:refresh_token;type:text;comment:刷新令牌"`
	TokenExpiresAt    *time.Time `gorm:"column:token_expires_at;type:timestamptz;comment:访问令牌过期时间"`
	IsActive          bool       `gorm:"column:is_active;type:boolean;default:true;comment:是否启用"`
	LastSyncAt        *time.Time `gorm:"column:last_sync_at;type:timestamptz;comment:最近同步完成时间"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// Location 账号下的门店，按 (account_id, external_location_id) 唯一；上游删除时归档
type Location struct {
	ID                 string         `gorm:"column:id;type:uuid;primaryKey"`
	AccountID          string         `gorm:"column:account_id;type:uuid;not null;uniqueIndex:uq_location_account_external,priority:1"`
	ExternalLocationID string         `gorm:"column:external_location_id;type:varchar(256);not null;uniqueIndex:uq_location_account_external,priority:2;comment:平台资源名 locations/{id}"`
	LocationName       string         `gorm:"column:location_name;type:varchar(256);not null"`
	Address            string         `gorm:"column:address;type:text"`
	Phone              string         `gorm:"column:phone;type:varchar(64)"`
	Category           string         `gorm:"column:category;type:varchar(256)"`
	Website            string         `gorm:"column:website;type:text"`
	Rating             *float64       `gorm:"column:rating;type:numeric(3,2);comment:平台给出的平均星级"`
	ReviewCount        int            `gorm:"column:review_count;type:int;default:0"`
	Metadata           datatypes.JSON `gorm:"column:metadata;type:jsonb;comment:平台原始元数据"`
	IsActive           bool           `gorm:"column:is_active;type:boolean;default:true"`
	IsArchived         bool           `gorm:"column:is_archived;type:boolean;default:false"`
	LastSyncedAt       *time.Time     `gorm:"column:last_synced_at;type:timestamptz"`
	CreatedAt          time.Time      `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// Review 门店评论，external_review_id 全局唯一（upsert 冲突键）
type Review struct {
	ID               string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LocationID       string     `gorm:"column:location_id;type:uuid;not null;index" json:"location_id"`
	AccountID        string     `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	ExternalReviewID string     `gorm:"column:external_review_id;type:varchar(256);not null;uniqueIndex" json:"external_review_id"`
	ReviewName       string     `gorm:"column:review_name;type:text;comment:完整资源名，回复时使用" json:"review_name"`
	ReviewerName     string     `gorm:"column:reviewer_name;type:varchar(256)" json:"reviewer_name"`
	Rating           int        `gorm:"column:rating;type:smallint;not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	ReviewText       string     `gorm:"column:review_text;type:text" json:"review_text"`
	ReviewDate       time.Time  `gorm:"column:review_date;type:timestamptz;not null;index" json:"review_date"`
	ReplyText        *string    `gorm:"column:reply_text;type:text" json:"reply_text"`
	ReplyDate        *time.Time `gorm:"column:reply_date;type:timestamptz" json:"reply_date"`
	HasReply         bool       `gorm:"column:has_reply;type:boolean;default:false" json:"has_reply"`
	Status           string     `gorm:"column:status;type:varchar(16);default:pending;index" json:"status"`
	Sentiment        *string    `gorm:"column:sentiment;type:varchar(16)" json:"sentiment"`
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;type:timestamptz;default:now()" json:"updated_at"`
}

// MediaItem 门店照片/视频
type MediaItem struct {
	ID                string         `gorm:"column:id;type:uuid;primaryKey"`
	LocationID        string         `gorm:"column:location_id;type:uuid;not null;index"`
	ExternalMediaID   string         `gorm:"column:external_media_id;type:varchar(256);not null;uniqueIndex"`
	MediaType         string         `gorm:"column:media_type;type:varchar(16)"`
	Category          string         `gorm:"column:category;type:varchar(64)"`
	URL               string         `gorm:"column:url;type:text"`
	ThumbnailURL      string         `gorm:"column:thumbnail_url;type:text"`
	ExternalCreatedAt *time.Time     `gorm:"column:external_created_at;type:timestamptz"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time      `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// PerformanceMetric 每日指标点，(location_id, metric_date, metric_type) 唯一
type PerformanceMetric struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey"`
	LocationID    string    `gorm:"column:location_id;type:uuid;not null;uniqueIndex:uq_metric_location_date_type,priority:1"`
	MetricDate    time.Time `gorm:"column:metric_date;type:date;not null;uniqueIndex:uq_metric_location_date_type,priority:2"`
	MetricType    string    `gorm:"column:metric_type;type:varchar(64);not null;uniqueIndex:uq_metric_location_date_type,priority:3"`
	MetricValue   int64     `gorm:"column:metric_value;type:bigint;not null;default:0"`
	SubEntityType *string   `gorm:"column:sub_entity_type;type:varchar(128)"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// SearchKeyword 月度搜索关键词曝光，(location_id, search_keyword, month_year) 唯一。
// IsThresholded 为 true 时 ImpressionsCount 是平台给出的阈值而非精确值
type SearchKeyword struct {
	ID               string    `gorm:"column:id;type:uuid;primaryKey"`
	LocationID       string    `gorm:"column:location_id;type:uuid;not null;uniqueIndex:uq_keyword_location_month,priority:1"`
	SearchKeyword    string    `gorm:"column:search_keyword;type:varchar(512);not null;uniqueIndex:uq_keyword_location_month,priority:2"`
	MonthYear        time.Time `gorm:"column:month_year;type:date;not null;uniqueIndex:uq_keyword_location_month,priority:3"`
	ImpressionsCount int64     `gorm:"column:impressions_count;type:bigint;not null;default:0"`
	IsThresholded    bool      `gorm:"column:is_thresholded;type:boolean;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// Question 门店问答，由 Q&A 模块写入，这里只读未回答数量
type Question struct {
	ID                 string    `gorm:"column:id;type:uuid;primaryKey"`
	LocationID         string    `gorm:"column:location_id;type:uuid;not null;index"`
	ExternalQuestionID string    `gorm:"column:external_question_id;type:varchar(256);uniqueIndex"`
	QuestionText       string    `gorm:"column:question_text;type:text"`
	AnswerStatus       string    `gorm:"column:answer_status;type:varchar(16);default:pending"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;default:now()"`
}

// SyncRun 每次 syncAccount 的执行记录
type SyncRun struct {
	ID           string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AccountID    string         `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	SyncType     SyncType       `gorm:"column:sync_type;type:varchar(16);not null" json:"sync_type"`
	Status       string         `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Counts       datatypes.JSON `gorm:"column:counts;type:jsonb" json:"counts"`
	ErrorCode    *string        `gorm:"column:error_code;type:varchar(64)" json:"error_code"`
	ErrorMessage *string        `gorm:"column:error_message;type:text" json:"error_message"`
	DurationMs   int64          `gorm:"column:duration_ms;type:bigint;default:0" json:"duration_ms"`
	StartedAt    time.Time      `gorm:"column:started_at;type:timestamptz;not null" json:"started_at"`
	FinishedAt   *time.Time     `gorm:"column:finished_at;type:timestamptz" json:"finished_at"`
}

func (Account) TableName() string           { return "gmb_accounts" }
func (Location) TableName() string          { return "gmb_locations" }
func (Review) TableName() string            { return "gmb_reviews" }
func (MediaItem) TableName() string         { return "gmb_media" }
func (PerformanceMetric) TableName() string { return "gmb_performance_metrics" }
func (SearchKeyword) TableName() string     { return "gmb_search_keywords" }
func (Question) TableName() string          { return "gmb_questions" }
func (SyncRun) TableName() string           { return "gmb_sync_runs" }

// BeforeCreate 主键由应用侧生成
func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (r *SyncRun) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AllTables AutoMigrate 顺序
func AllTables() []interface{} {
	return []interface{}{
		&Account{},
		&Location{},
		&Review{},
		&MediaItem{},
		&PerformanceMetric{},
		&SearchKeyword{},
		&Question{},
		&SyncRun{},
	}
}
