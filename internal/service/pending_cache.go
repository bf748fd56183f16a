package service

import (
	"sync"
	"time"

	"github.com/mautops/meeting-gin/internal/model"
)

// PendingListCache 待审批列表快照缓存
// 每次成功读取后刷新快照,数据库不可用时返回最近一次的快照,
// 让审批人在后端抖动期间仍能看到(可能过期的)待办列表
type PendingListCache struct {
	mu        sync.RWMutex
	snapshot  []*model.MeetingModel
	fetchedAt time.Time
	hasData   bool
}

// NewPendingListCache 创建待审批列表缓存
func NewPendingListCache() *PendingListCache {
	return &PendingListCache{}
}

// Put 刷新快照
func (c *PendingListCache) Put(meetings []*model.MeetingModel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = meetings
	c.fetchedAt = time.Now()
	c.hasData = true
}

// Get 读取快照,第二个返回值表示快照是否存在
func (c *PendingListCache) Get() ([]*model.MeetingModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasData {
		return nil, false
	}
	return c.snapshot, true
}

// FetchedAt 返回快照的刷新时间
func (c *PendingListCache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fetchedAt
}
