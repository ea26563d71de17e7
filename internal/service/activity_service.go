package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course_hub_backend/internal/model"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	activityFeedKeyPrefix   = "activity:user:"
	defaultActivityFeedSize = 50
)

// ActivityEvent 一次需要记录的领域事件
type ActivityEvent struct {
	UserID       uint
	ActivityType model.ActivityType
	Title        string
	Description  string
	Metadata     map[string]interface{}
}

type RecordResult struct {
	Success bool
	Err     error
}

// ActivityRecorder 操作记录是诊断信息，失败不能影响主操作
type ActivityRecorder interface {
	Record(ctx context.Context, event ActivityEvent) RecordResult
}

type ActivityStore interface {
	Create(ctx context.Context, activity *model.Activity) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.Activity, error)
}

// FeedEntry Redis 中保存的动态条目
type FeedEntry struct {
	ID           string             `json:"id"`
	ActivityType model.ActivityType `json:"activityType"`
	Title        string             `json:"title"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type ActivityService struct {
	Repo     ActivityStore
	Redis    *redis.Client
	FeedSize int64
}

func NewActivityService(repo ActivityStore, rdb *redis.Client, feedSize int64) *ActivityService {
	if feedSize <= 0 {
		feedSize = defaultActivityFeedSize
	}
	return &ActivityService{Repo: repo, Redis: rdb, FeedSize: feedSize}
}

func (s *ActivityService) Record(ctx context.Context, event ActivityEvent) (res RecordResult) {
	defer func() {
		if r := recover(); r != nil {
			res = RecordResult{Err: fmt.Errorf("record activity panicked: %v", r)}
		}
	}()

	if event.UserID == 0 || event.ActivityType == "" {
		return RecordResult{Err: errors.New("activity requires user and type")}
	}

	activity := &model.Activity{
		UserID:       event.UserID,
		ActivityType: event.ActivityType,
		Title:        event.Title,
		Description:  event.Description,
		Metadata:     event.Metadata,
	}
	if err := s.Repo.Create(ctx, activity); err != nil {
		return RecordResult{Err: err}
	}

	s.pushFeed(ctx, activity)
	return RecordResult{Success: true}
}

func (s *ActivityService) pushFeed(ctx context.Context, activity *model.Activity) {
	if s.Redis == nil {
		return
	}

	payload, err := json.Marshal(FeedEntry{
		ID:           activity.ID,
		ActivityType: activity.ActivityType,
		Title:        activity.Title,
		CreatedAt:    activity.CreatedAt,
	})
	if err != nil {
		logger.Log.Warn("encode activity feed entry failed", zap.Error(err))
		return
	}

	key := feedKey(activity.UserID)
	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, s.FeedSize-1)
		return nil
	})
	if err != nil {
		logger.Log.Warn("push activity feed failed",
			zap.Uint("user_id", activity.UserID),
			zap.Error(err),
		)
	}
}

// Recent 返回用户最近的动态，优先读 Redis，不可用时回退到数据库
func (s *ActivityService) Recent(ctx context.Context, userID uint, limit int) ([]FeedEntry, error) {
	if limit <= 0 || int64(limit) > s.FeedSize {
		limit = int(s.FeedSize)
	}

	if s.Redis != nil {
		raw, err := s.Redis.LRange(ctx, feedKey(userID), 0, int64(limit-1)).Result()
		if err == nil && len(raw) > 0 {
			entries := make([]FeedEntry, 0, len(raw))
			for _, item := range raw {
				var entry FeedEntry
				if err := json.Unmarshal([]byte(item), &entry); err != nil {
					continue
				}
				entries = append(entries, entry)
			}
			return entries, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Log.Warn("read activity feed failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	activities, err := s.Repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]FeedEntry, 0, len(activities))
	for _, a := range activities {
		entries = append(entries, FeedEntry{
			ID:           a.ID,
			ActivityType: a.ActivityType,
			Title:        a.Title,
			CreatedAt:    a.CreatedAt,
		})
	}
	return entries, nil
}

func feedKey(userID uint) string {
	return fmt.Sprintf("%s%d", activityFeedKeyPrefix, userID)
}

// recordHook 把一次记录包装成 PostCommit 钩子
func recordHook(recorder ActivityRecorder, event ActivityEvent) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if recorder == nil {
			return nil
		}
		res := recorder.Record(ctx, event)
		if res.Success {
			return nil
		}
		monitoring.ActivityRecordFailures.Inc()
		if res.Err != nil {
			return res.Err
		}
		return errors.New("activity not recorded")
	}
}
