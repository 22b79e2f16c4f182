package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hearthchat/moderation/models"
)

// In-process Store, for tests and database-less runs. Records are copied in and out, so callers never share memory with the store.
type MemStore struct {
	lk sync.RWMutex

	trust    map[string]models.UserTrustScore
	actions  map[string]models.ModerationAction
	analyses map[string]models.ModerationAnalysis
	sims     []models.ContentSimilarity
	queue    map[string]models.ModerationQueueItem
	reports  []models.UserReport
	hidden   map[string]models.HiddenContent
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		trust:    make(map[string]models.UserTrustScore),
		actions:  make(map[string]models.ModerationAction),
		analyses: make(map[string]models.ModerationAnalysis),
		queue:    make(map[string]models.ModerationQueueItem),
		hidden:   make(map[string]models.HiddenContent),
	}
}

func (s *MemStore) GetTrustScore(ctx context.Context, userID string) (*models.UserTrustScore, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	ts, ok := s.trust[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &ts, nil
}

func (s *MemStore) SaveTrustScore(ctx context.Context, ts *models.UserTrustScore) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.trust[ts.UserID] = *ts
	return nil
}

func (s *MemStore) CreateModerationAction(ctx context.Context, act *models.ModerationAction) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now()
	}
	s.actions[act.ID] = *act
	return nil
}

func (s *MemStore) GetModerationAction(ctx context.Context, id string) (*models.ModerationAction, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	act, ok := s.actions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &act, nil
}

func (s *MemStore) GetModerationActionsForUser(ctx context.Context, userID string) ([]models.ModerationAction, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []models.ModerationAction
	for _, act := range s.actions {
		if act.TargetUserID == userID {
			out = append(out, act)
		}
	}
	sortActionsNewestFirst(out)
	return out, nil
}

func (s *MemStore) GetActiveModerationActions(ctx context.Context, userID string, now time.Time) ([]models.ModerationAction, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	overridden := map[string]bool{}
	for _, act := range s.actions {
		if act.OverridesActionID != nil {
			overridden[*act.OverridesActionID] = true
		}
	}
	var out []models.ModerationAction
	for _, act := range s.actions {
		if act.TargetUserID != userID || !act.Action.IsViolation() || overridden[act.ID] {
			continue
		}
		if act.ActiveAt(now) {
			out = append(out, act)
		}
	}
	sortActionsNewestFirst(out)
	return out, nil
}

func (s *MemStore) ExpireModerationActions(ctx context.Context, now time.Time) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	n := 0
	for id, act := range s.actions {
		if !act.Expired && act.ExpiresAt != nil && !act.ExpiresAt.After(now) {
			act.Expired = true
			s.actions[id] = act
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CreateAnalysis(ctx context.Context, a *models.ModerationAnalysis) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.analyses[a.ID] = *a
	return nil
}

func (s *MemStore) GetAnalysis(ctx context.Context, id string) (*models.ModerationAnalysis, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	a, ok := s.analyses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemStore) RecentAnalysesForUser(ctx context.Context, userID string, limit int) ([]models.ModerationAnalysis, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []models.ModerationAnalysis
	for _, a := range s.analyses {
		if a.AuthorID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) CreateSimilarity(ctx context.Context, sim *models.ContentSimilarity) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if sim.CreatedAt.IsZero() {
		sim.CreatedAt = time.Now()
	}
	s.sims = append(s.sims, *sim)
	return nil
}

func (s *MemStore) CreateQueueItem(ctx context.Context, item *models.ModerationQueueItem) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.queue[item.ID] = *item
	return nil
}

func (s *MemStore) GetQueueItem(ctx context.Context, id string) (*models.ModerationQueueItem, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	item, ok := s.queue[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemStore) ListQueueItems(ctx context.Context, filter QueueFilter) ([]models.ModerationQueueItem, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []models.ModerationQueueItem
	for _, item := range s.queue {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		if filter.AssignedTo != "" && item.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemStore) TransitionQueueItem(ctx context.Context, item *models.ModerationQueueItem, from models.QueueStatus) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cur, ok := s.queue[item.ID]
	if !ok || cur.Status != from {
		return ErrConflict
	}
	item.CreatedAt = cur.CreatedAt
	item.UpdatedAt = time.Now()
	s.queue[item.ID] = *item
	return nil
}

func (s *MemStore) CreateReport(ctx context.Context, r *models.UserReport) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.reports = append(s.reports, *r)
	return nil
}

func (s *MemStore) GetReportsByReporter(ctx context.Context, reporterID string) ([]models.UserReport, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []models.UserReport
	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].ReporterID == reporterID {
			out = append(out, s.reports[i])
		}
	}
	return out, nil
}

func (s *MemStore) HideMessage(ctx context.Context, contentID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.hidden[contentID] = models.HiddenContent{
		ContentID: contentID,
		HiddenAt:  time.Now(),
	}
	return nil
}

func (s *MemStore) RestoreMessage(ctx context.Context, contentID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	hc, ok := s.hidden[contentID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	hc.RestoredAt = &now
	s.hidden[contentID] = hc
	return nil
}

func (s *MemStore) IsHidden(ctx context.Context, contentID string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	hc, ok := s.hidden[contentID]
	return ok && hc.RestoredAt == nil, nil
}

// Similarity records for a content hash, oldest first.
func (s *MemStore) SimilaritiesForHash(contentHash string) []models.ContentSimilarity {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []models.ContentSimilarity
	for _, sim := range s.sims {
		if sim.ContentHash == contentHash {
			out = append(out, sim)
		}
	}
	return out
}

func sortActionsNewestFirst(l []models.ModerationAction) {
	sort.Slice(l, func(i, j int) bool {
		return l[i].CreatedAt.After(l[j].CreatedAt)
	})
}
