package model

import "time"

// PostStatus 表示文章的存储状态
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// IsValid 判断状态值是否合法
func (s PostStatus) IsValid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// VisibilityState 表示文章在某一时刻的有效可见性
type VisibilityState string

const (
	VisibilityDraft     VisibilityState = "draft"
	VisibilityScheduled VisibilityState = "scheduled"
	VisibilityPublished VisibilityState = "published"
)

// Post 表示一篇文章及其附属数据
type Post struct {
	ID            int         `json:"id"`
	UserID        int         `json:"user_id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Status        PostStatus  `json:"status"`
	PublishedAt   *time.Time  `json:"published_at,omitempty"`
	ScheduledAt   *time.Time  `json:"scheduled_at,omitempty"`
	ThumbnailPath string      `json:"-"`
	ThumbnailURL  string      `json:"thumbnail_url,omitempty"` // 派生字段，读取时由存储层路径计算
	Tags          []string    `json:"tags"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	User          *User       `json:"user,omitempty"`
	Images        []PostImage `json:"images"`
	LikeCount     int         `json:"like_count"` // 派生字段，每次读取重新计算
	IsLiked       bool        `json:"is_liked"`
}

// PostImage 表示文章拥有的一张图片，Order 决定展示顺序
type PostImage struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	ImagePath string    `json:"-"`
	ImageURL  string    `json:"image_url"` // 派生字段
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Like 表示用户对文章的点赞，(PostID, UserID) 唯一
type Like struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	PostID    int       `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ComputeVisibility 计算文章在 now 时刻的有效可见性。
// 可见性只由 (status, scheduledAt, now) 决定：没有后台任务翻转状态，
// 预约文章到点后"变为已发布"完全是时钟越过 scheduled_at 的结果。
func ComputeVisibility(status PostStatus, scheduledAt *time.Time, now time.Time) VisibilityState {
	if status == PostStatusDraft {
		return VisibilityDraft
	}
	if scheduledAt != nil && scheduledAt.After(now) {
		return VisibilityScheduled
	}
	return VisibilityPublished
}

// Visibility 返回文章在 now 时刻的有效可见性
func (p *Post) Visibility(now time.Time) VisibilityState {
	return ComputeVisibility(p.Status, p.ScheduledAt, now)
}

// IsPubliclyVisible 判断文章在 now 时刻是否对所有人可见
func (p *Post) IsPubliclyVisible(now time.Time) bool {
	return p.Visibility(now) == VisibilityPublished
}

// ListScope 表示"我的文章"列表的过滤范围
type ListScope string

const (
	ScopeMine      ListScope = "mine"      // 全部自己的文章
	ScopeDrafts    ListScope = "drafts"    // 草稿
	ScopeScheduled ListScope = "scheduled" // 已预约、尚未到点
	ScopePublished ListScope = "published" // 已公开
)

// PostFilters 表示公开列表的过滤条件
type PostFilters struct {
	Keyword string   `json:"keyword"` // 标题或正文的子串匹配，不区分大小写
	Tags    []string `json:"tags"`    // 多个标签之间为 OR 语义
}
