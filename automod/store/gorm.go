package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthchat/moderation/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.UserTrustScore{},
		&models.ModerationAction{},
		&models.ModerationAnalysis{},
		&models.ContentSimilarity{},
		&models.ModerationQueueItem{},
		&models.UserReport{},
		&models.HiddenContent{},
	)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetTrustScore(ctx context.Context, userID string) (*models.UserTrustScore, error) {
	var ts models.UserTrustScore
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&ts).Error; err != nil {
		return nil, translate(err)
	}
	return &ts, nil
}

func (s *GormStore) SaveTrustScore(ctx context.Context, ts *models.UserTrustScore) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(ts).Error
}

func (s *GormStore) CreateModerationAction(ctx context.Context, act *models.ModerationAction) error {
	return s.db.WithContext(ctx).Create(act).Error
}

func (s *GormStore) GetModerationAction(ctx context.Context, id string) (*models.ModerationAction, error) {
	var act models.ModerationAction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&act).Error; err != nil {
		return nil, translate(err)
	}
	return &act, nil
}

func (s *GormStore) GetModerationActionsForUser(ctx context.Context, userID string) ([]models.ModerationAction, error) {
	var out []models.ModerationAction
	err := s.db.WithContext(ctx).
		Where("target_user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

var violationKinds = []models.ActionKind{
	models.ActionWarn,
	models.ActionHide,
	models.ActionDelete,
	models.ActionTempBan,
	models.ActionPermBan,
}

func (s *GormStore) GetActiveModerationActions(ctx context.Context, userID string, now time.Time) ([]models.ModerationAction, error) {
	overridden := s.db.Model(&models.ModerationAction{}).
		Select("overrides_action_id").
		Where("overrides_action_id IS NOT NULL")
	var out []models.ModerationAction
	err := s.db.WithContext(ctx).
		Where("target_user_id = ? AND expired = ? AND action IN ?", userID, false, violationKinds).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("id NOT IN (?)", overridden).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ExpireModerationActions(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ModerationAction{}).
		Where("expired = ? AND expires_at IS NOT NULL AND expires_at <= ?", false, now).
		Update("expired", true)
	if res.Error != nil {
		return 0, fmt.Errorf("expiring moderation actions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *GormStore) CreateAnalysis(ctx context.Context, a *models.ModerationAnalysis) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *GormStore) GetAnalysis(ctx context.Context, id string) (*models.ModerationAnalysis, error) {
	var a models.ModerationAnalysis
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) RecentAnalysesForUser(ctx context.Context, userID string, limit int) ([]models.ModerationAnalysis, error) {
	var out []models.ModerationAnalysis
	err := s.db.WithContext(ctx).
		Where("author_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *GormStore) CreateSimilarity(ctx context.Context, sim *models.ContentSimilarity) error {
	return s.db.WithContext(ctx).Create(sim).Error
}

func (s *GormStore) CreateQueueItem(ctx context.Context, item *models.ModerationQueueItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *GormStore) GetQueueItem(ctx context.Context, id string) (*models.ModerationQueueItem, error) {
	var item models.ModerationQueueItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

const priorityOrder = "CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"

func (s *GormStore) ListQueueItems(ctx context.Context, filter QueueFilter) ([]models.ModerationQueueItem, error) {
	q := s.db.WithContext(ctx).Model(&models.ModerationQueueItem{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []models.ModerationQueueItem
	err := q.Order(priorityOrder).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *GormStore) TransitionQueueItem(ctx context.Context, item *models.ModerationQueueItem, from models.QueueStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.ModerationQueueItem{}).
		Where("id = ? AND status = ?", item.ID, from).
		Select("*").
		Omit("id", "created_at").
		Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormStore) CreateReport(ctx context.Context, r *models.UserReport) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) GetReportsByReporter(ctx context.Context, reporterID string) ([]models.UserReport, error) {
	var out []models.UserReport
	err := s.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) HideMessage(ctx context.Context, contentID string) error {
	hc := models.HiddenContent{
		ContentID: contentID,
		HiddenAt:  time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"hidden_at": hc.HiddenAt, "restored_at": nil}),
		}).
		Create(&hc).Error
}

func (s *GormStore) RestoreMessage(ctx context.Context, contentID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.HiddenContent{}).
		Where("content_id = ?", contentID).
		Update("restored_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) IsHidden(ctx context.Context, contentID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.HiddenContent{}).
		Where("content_id = ? AND restored_at IS NULL", contentID).
		Count(&count).Error
	return count > 0, err
}
