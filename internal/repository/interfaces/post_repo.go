package interfaces

import "blog-backend/internal/model"

// PostRepository 定义了文章相关的数据库操作接口
type PostRepository interface {
	// CreatePost 在一个事务中写入文章、标签和图片行
	CreatePost(post *model.Post, images []model.PostImage) error
	// GetPostByID 返回文章及其标签、图片和点赞数；不存在时返回 (nil, nil)
	GetPostByID(id int) (*model.Post, error)
	// UpdatePost 在一个事务中删除指定图片行、写入新图片行并更新标量字段和标签
	UpdatePost(post *model.Post, deletedImageIDs []int, newImages []model.PostImage) error
	// DeletePost 删除文章行，图片和点赞由外键级联删除
	DeletePost(id int) error

	GetImagesByPostID(postID int) ([]model.PostImage, error)
	MaxImageOrder(postID int) (int, error)

	// ListPublic 返回公开可见的文章（status=published 且预约时间已过）
	ListPublic(filters model.PostFilters, page, pageSize int) ([]*model.Post, int, error)
	// ListByUser 返回某用户在指定范围内的文章
	ListByUser(userID int, scope model.ListScope, page, pageSize int) ([]*model.Post, int, error)

	// ToggleLike 翻转点赞状态，返回翻转后的状态和当前点赞数。
	// 并发重复插入由唯一索引兜底，解析为"已点赞"而不是错误
	ToggleLike(postID, userID int) (liked bool, likeCount int, err error)
	GetLikeCount(postID int) (int, error)
	IsPostLikedByUser(postID, userID int) (bool, error)
}
