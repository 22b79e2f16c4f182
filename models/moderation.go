package models

import (
	"time"
)

type TrustLevel string

const (
	TrustLevelNew        TrustLevel = "new"
	TrustLevelBasic      TrustLevel = "basic"
	TrustLevelTrusted    TrustLevel = "trusted"
	TrustLevelVeteran    TrustLevel = "veteran"
	TrustLevelRestricted TrustLevel = "restricted"
	TrustLevelSuspended  TrustLevel = "suspended"
)

type ActionKind string

const (
	ActionApprove ActionKind = "approve"
	ActionWarn    ActionKind = "warn"
	ActionReview  ActionKind = "review"
	ActionHide    ActionKind = "hide"
	ActionDelete  ActionKind = "delete"
	ActionTempBan ActionKind = "temp_ban"
	ActionPermBan ActionKind = "perm_ban"
	ActionRestore ActionKind = "restore"
)

// IsViolation reports whether an action counts against the target user.
func (a ActionKind) IsViolation() bool {
	switch a {
	case ActionWarn, ActionHide, ActionDelete, ActionTempBan, ActionPermBan:
		return true
	}
	return false
}

// IsBan reports whether an action restricts the whole account.
func (a ActionKind) IsBan() bool {
	return a == ActionTempBan || a == ActionPermBan
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ActorType string

const (
	ActorAutomated ActorType = "automated"
	ActorHuman     ActorType = "human"
)

type TargetType string

const (
	TargetMessage TargetType = "message"
	TargetUser    TargetType = "user"
)

type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueInReview QueueStatus = "in_review"
	QueueResolved QueueStatus = "resolved"
)

type QueuePriority string

const (
	PriorityLow    QueuePriority = "low"
	PriorityMedium QueuePriority = "medium"
	PriorityHigh   QueuePriority = "high"
	PriorityUrgent QueuePriority = "urgent"
)

type QueueKind string

const (
	QueueKindContent QueueKind = "content"
	QueueKindAppeal  QueueKind = "appeal"
)

// Long-lived reputation record, one per human identity. Created lazily with neutral defaults.
type UserTrustScore struct {
	UserID               string  `gorm:"primaryKey"`
	OverallTrustScore    float64 `gorm:"not null"`
	ContentQualityScore  float64 `gorm:"not null"`
	EngagementScore      float64 `gorm:"not null"`
	ReportAccuracyScore  float64 `gorm:"not null"`
	MessagesCount        int64   `gorm:"not null"`
	ReportsMade          int64   `gorm:"not null"`
	ReportsReceived      int64   `gorm:"not null"`
	WarningsCount        int64   `gorm:"not null"`
	TempBansCount        int64   `gorm:"not null"`
	DaysWithoutViolation int64   `gorm:"not null"`
	LastViolationAt      *time.Time
	TrustLevel           TrustLevel `gorm:"not null"`
	MaxDailyMessages     int        `gorm:"not null"`
	RequiresReview       bool       `gorm:"not null"`
	CreatedAt            time.Time  `gorm:"not null"`
	UpdatedAt            time.Time  `gorm:"not null"`
}

// Snapshot of the signals a decision was made on. Stored alongside actions.
type Evidence struct {
	ToxicityScore    float64  `json:"toxicityScore"`
	SpamScore        float64  `json:"spamScore"`
	ScamScore        float64  `json:"scamScore"`
	PromotionalScore float64  `json:"promotionalScore"`
	SentimentScore   float64  `json:"sentimentScore"`
	UserBehaviorRisk float64  `json:"userBehaviorRisk"`
	RiskScore        float64  `json:"riskScore"`
	TrustScore       float64  `json:"trustScore"`
	RecentViolations int      `json:"recentViolations"`
	Duplicate        bool     `json:"duplicate"`
	FlaggedPatterns  []string `json:"flaggedPatterns,omitempty"`
}

// Immutable enforcement record. Later actions may override an earlier one via OverridesActionID; the earlier record is never edited.
type ModerationAction struct {
	ID                  string     `gorm:"primaryKey"`
	TargetID            string     `gorm:"not null;index"`
	TargetType          TargetType `gorm:"not null"`
	TargetUserID        string     `gorm:"not null;index"`
	ActorType           ActorType  `gorm:"not null"`
	ActorID             string
	Action              ActionKind `gorm:"not null"`
	Severity            Severity   `gorm:"not null"`
	DurationSeconds     int64
	ExpiresAt           *time.Time `gorm:"index"`
	Reason              string     `gorm:"not null"`
	Evidence            Evidence   `gorm:"serializer:json"`
	RequiresHumanReview bool       `gorm:"not null"`
	AnalysisID          string
	OverridesActionID   *string `gorm:"index"`
	AppealReason        string
	// bookkeeping set by expiry maintenance; the enforcement content itself is never edited
	Expired   bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// Whether the action is still in force at the given instant. Overrides are resolved by the store.
func (a *ModerationAction) ActiveAt(now time.Time) bool {
	if a.Expired {
		return false
	}
	if a.ExpiresAt == nil {
		return true
	}
	return now.Before(*a.ExpiresAt)
}

// Queue ordering, most urgent first.
func (p QueuePriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type AnalyzedURL struct {
	URL             string  `json:"url"`
	Domain          string  `json:"domain"`
	Reputation      string  `json:"reputation"`
	ReputationScore float64 `json:"reputationScore"`
}

// Append-only record of one content analysis.
type ModerationAnalysis struct {
	ID                 string `gorm:"primaryKey"`
	ContentID          string `gorm:"not null;index"`
	AuthorID           string `gorm:"not null;index"`
	Room               string
	ToxicityScore      float64            `gorm:"not null"`
	SentimentScore     float64            `gorm:"not null"`
	SpamScore          float64            `gorm:"not null"`
	ScamScore          float64            `gorm:"not null"`
	PromotionalScore   float64            `gorm:"not null"`
	UserBehaviorRisk   float64            `gorm:"not null"`
	RiskScore          float64            `gorm:"not null"`
	Languages          []string           `gorm:"serializer:json"`
	FlaggedPatterns    []string           `gorm:"serializer:json"`
	URLs               []AnalyzedURL      `gorm:"serializer:json"`
	SemanticCategories map[string]float64 `gorm:"serializer:json"`
	RiskLevel          string             `gorm:"not null"`
	RecommendedAction  string             `gorm:"not null"`
	ContentHash        string             `gorm:"index"`
	URLCount           int
	AnalyzerVersion    string
	ProcessingTimeMs   int64
	Fallback           bool
	CreatedAt          time.Time `gorm:"not null;index"`
}

// Fingerprint of one analyzed message. Never mutated after creation.
type ContentSimilarity struct {
	ID              string `gorm:"primaryKey"`
	ContentID       string `gorm:"not null;index"`
	AuthorID        string `gorm:"not null"`
	ContentHash     string `gorm:"not null;index"`
	SemanticHash    string
	WordCount       int
	UniqueWordRatio float64
	UppercaseRatio  float64
	URLCount        int
	SimilarityScore float64
	ClusterID       string
	CreatedAt       time.Time `gorm:"not null"`
}

// Pending human-review ticket. Transitions pending -> in_review -> resolved.
type ModerationQueueItem struct {
	ID              string     `gorm:"primaryKey"`
	Kind            QueueKind  `gorm:"not null"`
	ContentID       string     `gorm:"not null;index"`
	ContentType     TargetType `gorm:"not null"`
	AuthorID        string     `gorm:"index"`
	ActionID        string
	AnalysisID      string
	Priority        QueuePriority `gorm:"not null"`
	Severity        Severity      `gorm:"not null"`
	Reasons         []string      `gorm:"serializer:json"`
	Status          QueueStatus   `gorm:"not null;index"`
	AssignedTo      string
	AssignedAt      *time.Time
	ResolvedBy      string
	ResolvedAt      *time.Time
	Resolution      ActionKind
	ResolutionNotes string
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type UserReport struct {
	ID           string `gorm:"primaryKey"`
	ReporterID   string `gorm:"not null;index"`
	TargetUserID string `gorm:"not null;index"`
	ContentID    string
	Reason       string
	Upheld       *bool
	CreatedAt    time.Time `gorm:"not null"`
}

// Marker for content hidden by the moderation core; the transport consults it before delivery.
type HiddenContent struct {
	ContentID  string `gorm:"primaryKey"`
	HiddenAt   time.Time
	RestoredAt *time.Time
}
