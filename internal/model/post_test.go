package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestComputeVisibility 测试可见性状态机
func TestComputeVisibility(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	// 草稿永远是草稿，与时间无关
	assert.Equal(t, VisibilityDraft, ComputeVisibility(PostStatusDraft, nil, now))
	assert.Equal(t, VisibilityDraft, ComputeVisibility(PostStatusDraft, &future, now))
	assert.Equal(t, VisibilityDraft, ComputeVisibility(PostStatusDraft, &past, now))

	// 已发布且未设置预约时间 -> 公开
	assert.Equal(t, VisibilityPublished, ComputeVisibility(PostStatusPublished, nil, now))

	// 预约时间在未来 -> 预约中
	assert.Equal(t, VisibilityScheduled, ComputeVisibility(PostStatusPublished, &future, now))

	// 预约时间已过或恰好等于当前时间 -> 公开
	assert.Equal(t, VisibilityPublished, ComputeVisibility(PostStatusPublished, &past, now))
	assert.Equal(t, VisibilityPublished, ComputeVisibility(PostStatusPublished, &now, now))
}

// TestVisibilityMonotonic 测试时钟越过 scheduled_at 时可见性单调变化，
// 只从预约中变为公开一次，不会回退
func TestVisibilityMonotonic(t *testing.T) {
	scheduledAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	post := &Post{
		Status:      PostStatusPublished,
		ScheduledAt: &scheduledAt,
	}

	var transitions int
	prev := post.Visibility(scheduledAt.Add(-time.Hour))
	assert.Equal(t, VisibilityScheduled, prev)

	// 逐分钟推进时钟，跨越 scheduled_at
	for i := -60; i <= 60; i++ {
		state := post.Visibility(scheduledAt.Add(time.Duration(i) * time.Minute))
		if state != prev {
			transitions++
			assert.Equal(t, VisibilityScheduled, prev)
			assert.Equal(t, VisibilityPublished, state)
			prev = state
		}
	}

	assert.Equal(t, 1, transitions)
	assert.Equal(t, VisibilityPublished, prev)
}

// TestIsPubliclyVisible 测试公开可见性判断：无需任何写操作，
// 时间经过 61 分钟后预约文章自动对外可见
func TestIsPubliclyVisible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scheduledAt := now.Add(time.Hour)

	post := &Post{Status: PostStatusPublished, ScheduledAt: &scheduledAt}
	assert.False(t, post.IsPubliclyVisible(now))
	assert.True(t, post.IsPubliclyVisible(now.Add(61*time.Minute)))

	draft := &Post{Status: PostStatusDraft}
	assert.False(t, draft.IsPubliclyVisible(now))
	assert.False(t, draft.IsPubliclyVisible(now.Add(100*time.Hour)))
}

func TestPostStatusIsValid(t *testing.T) {
	assert.True(t, PostStatusDraft.IsValid())
	assert.True(t, PostStatusPublished.IsValid())
	assert.False(t, PostStatus("archived").IsValid())
	assert.False(t, PostStatus("").IsValid())
}
