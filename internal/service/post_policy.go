package service

import (
	"blog-backend/internal/model"
	"time"
)

// 文章操作的授权判定。每个操作对应一个纯函数，
// 在任何变更执行前同步调用。userID 为 0 表示匿名访问者。

// CanViewPost 判断访问者是否可以查看文章：
// 公开可见的文章任何人可看，非公开文章只有作者本人可看
func CanViewPost(userID int, post *model.Post, now time.Time) bool {
	if post.IsPubliclyVisible(now) {
		return true
	}
	return userID != 0 && userID == post.UserID
}

// CanUpdatePost 判断用户是否可以更新文章：仅作者本人
func CanUpdatePost(userID int, post *model.Post) bool {
	return userID != 0 && userID == post.UserID
}

// CanDeletePost 判断用户是否可以删除文章：仅作者本人
func CanDeletePost(userID int, post *model.Post) bool {
	return userID != 0 && userID == post.UserID
}

// CanLikePost 判断用户是否可以点赞：任何已登录用户（含作者）
// 都可以给公开可见的文章点赞；非公开文章不允许点赞
func CanLikePost(userID int, post *model.Post, now time.Time) bool {
	return userID != 0 && post.IsPubliclyVisible(now)
}
