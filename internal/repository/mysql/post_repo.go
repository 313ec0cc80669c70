package mysql

import (
	"blog-backend/internal/model"
	"blog-backend/internal/util"
	"database/sql"
	"errors"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// 公开可见性谓词：已发布且预约时间为空或已过。
// 每次查询时重新求值，没有后台任务翻转状态
const publiclyVisibleCond = `p.status = 'published' AND (p.scheduled_at IS NULL OR p.scheduled_at <= NOW())`

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *postRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(post *model.Post, images []model.PostImage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 插入文章
	query := `INSERT INTO posts (user_id, title, content, status, published_at, scheduled_at, thumbnail_path, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`
	result, err := tx.Exec(query,
		post.UserID, post.Title, post.Content, post.Status,
		nullableTime(post.PublishedAt), nullableTime(post.ScheduledAt),
		nullableString(post.ThumbnailPath))
	if err != nil {
		util.Logger.Error("创建文章失败", zap.Error(err))
		return err
	}

	postID, err := result.LastInsertId()
	if err != nil {
		util.Logger.Error("获取新文章ID失败", zap.Error(err))
		return err
	}
	post.ID = int(postID)

	// 插入标签
	if err := insertPostTags(tx, post.ID, post.Tags); err != nil {
		util.Logger.Error("插入文章标签失败", zap.Error(err))
		return err
	}

	// 插入图片
	if err := insertPostImages(tx, post.ID, images); err != nil {
		util.Logger.Error("插入文章图片失败", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return err
	}

	util.Logger.Info("文章创建成功", zap.Int("post_id", post.ID))
	return nil
}

func (r *postRepository) GetPostByID(id int) (*model.Post, error) {
	query := `
        SELECT p.id, p.user_id, p.title, p.content, p.status,
               p.published_at, p.scheduled_at, p.thumbnail_path,
               p.created_at, p.updated_at,
               u.username, u.email, u.created_at, u.updated_at
        FROM posts p
        LEFT JOIN users u ON p.user_id = u.id
        WHERE p.id = ?`

	var post model.Post
	var user model.User
	var publishedAt, scheduledAt sql.NullTime
	var thumbnailPath sql.NullString
	err := r.db.QueryRow(query, id).Scan(
		&post.ID, &post.UserID, &post.Title, &post.Content, &post.Status,
		&publishedAt, &scheduledAt, &thumbnailPath,
		&post.CreatedAt, &post.UpdatedAt,
		&user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	post.ThumbnailPath = thumbnailPath.String
	user.ID = post.UserID
	post.User = &user

	if err := r.loadPostRelations(&post); err != nil {
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) UpdatePost(post *model.Post, deletedImageIDs []int, newImages []model.PostImage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 删除指定的图片行，幸存图片的顺序值保持不变
	if len(deletedImageIDs) > 0 {
		placeholders := make([]string, len(deletedImageIDs))
		args := make([]interface{}, 0, len(deletedImageIDs)+1)
		for i, imageID := range deletedImageIDs {
			placeholders[i] = "?"
			args = append(args, imageID)
		}
		args = append(args, post.ID)
		query := `DELETE FROM post_images WHERE id IN (` + strings.Join(placeholders, ",") + `) AND post_id = ?`
		if _, err := tx.Exec(query, args...); err != nil {
			util.Logger.Error("删除文章图片失败", zap.Error(err), zap.Int("post_id", post.ID))
			return err
		}
	}

	// 追加新图片
	if err := insertPostImages(tx, post.ID, newImages); err != nil {
		util.Logger.Error("插入新图片失败", zap.Error(err), zap.Int("post_id", post.ID))
		return err
	}

	// 更新标量字段
	query := `UPDATE posts
              SET title = ?, content = ?, status = ?, published_at = ?, scheduled_at = ?, thumbnail_path = ?, updated_at = NOW()
              WHERE id = ?`
	if _, err := tx.Exec(query,
		post.Title, post.Content, post.Status,
		nullableTime(post.PublishedAt), nullableTime(post.ScheduledAt),
		nullableString(post.ThumbnailPath), post.ID); err != nil {
		util.Logger.Error("更新文章失败", zap.Error(err), zap.Int("post_id", post.ID))
		return err
	}

	// 重建标签关联
	if _, err := tx.Exec(`DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
		return err
	}
	if err := insertPostTags(tx, post.ID, post.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return err
	}

	util.Logger.Info("文章更新成功", zap.Int("post_id", post.ID))
	return nil
}

func (r *postRepository) DeletePost(id int) error {
	util.Logger.Info("开始删除文章", zap.Int("post_id", id))

	// 图片、标签和点赞由外键级联删除
	_, err := r.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		util.Logger.Error("删除文章失败", zap.Error(err), zap.Int("post_id", id))
		return err
	}

	util.Logger.Info("文章删除成功", zap.Int("post_id", id))
	return nil
}

func (r *postRepository) GetImagesByPostID(postID int) ([]model.PostImage, error) {
	query := `SELECT id, post_id, image_path, display_order, created_at
              FROM post_images WHERE post_id = ? ORDER BY display_order ASC`
	rows, err := r.db.Query(query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []model.PostImage
	for rows.Next() {
		var image model.PostImage
		if err := rows.Scan(&image.ID, &image.PostID, &image.ImagePath, &image.Order, &image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *postRepository) MaxImageOrder(postID int) (int, error) {
	var maxOrder sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(display_order) FROM post_images WHERE post_id = ?`, postID).Scan(&maxOrder)
	if err != nil {
		return -1, err
	}
	if !maxOrder.Valid {
		// 没有图片时返回 -1，追加的第一张图片顺序为 0
		return -1, nil
	}
	return int(maxOrder.Int64), nil
}

func (r *postRepository) ListPublic(filters model.PostFilters, page, pageSize int) ([]*model.Post, int, error) {
	conditions := []string{publiclyVisibleCond}
	var args []interface{}

	// 关键词：标题或正文的子串匹配
	if filters.Keyword != "" {
		conditions = append(conditions, `(p.title LIKE ? OR p.content LIKE ?)`)
		args = append(args, "%"+filters.Keyword+"%", "%"+filters.Keyword+"%")
	}

	// 标签：多个标签之间为 OR 语义
	if len(filters.Tags) > 0 {
		placeholders := make([]string, len(filters.Tags))
		for i, tag := range filters.Tags {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		conditions = append(conditions,
			`EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag IN (`+strings.Join(placeholders, ",")+`))`)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	return r.listPosts(where, args, page, pageSize)
}

func (r *postRepository) ListByUser(userID int, scope model.ListScope, page, pageSize int) ([]*model.Post, int, error) {
	conditions := []string{`p.user_id = ?`}
	args := []interface{}{userID}

	switch scope {
	case model.ScopeMine:
		// 不加状态过滤
	case model.ScopeDrafts:
		conditions = append(conditions, `p.status = 'draft'`)
	case model.ScopeScheduled:
		conditions = append(conditions, `p.status = 'published' AND p.scheduled_at IS NOT NULL AND p.scheduled_at > NOW()`)
	case model.ScopePublished:
		conditions = append(conditions, `p.status = 'published' AND (p.scheduled_at IS NULL OR p.scheduled_at <= NOW())`)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	return r.listPosts(where, args, page, pageSize)
}

func (r *postRepository) listPosts(where string, args []interface{}, page, pageSize int) ([]*model.Post, int, error) {
	// 先取总数
	var total int
	countQuery := `SELECT COUNT(*) FROM posts p` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		util.Logger.Error("统计文章总数失败", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT p.id, p.user_id, p.title, p.content, p.status,
                     p.published_at, p.scheduled_at, p.thumbnail_path,
                     p.created_at, p.updated_at, u.username
              FROM posts p
              LEFT JOIN users u ON p.user_id = u.id` + where + `
              ORDER BY p.created_at DESC, p.id DESC
              LIMIT ? OFFSET ?`
	queryArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, queryArgs...)
	if err != nil {
		util.Logger.Error("查询文章列表失败", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		var post model.Post
		var user model.User
		var publishedAt, scheduledAt sql.NullTime
		var thumbnailPath sql.NullString
		err := rows.Scan(
			&post.ID, &post.UserID, &post.Title, &post.Content, &post.Status,
			&publishedAt, &scheduledAt, &thumbnailPath,
			&post.CreatedAt, &post.UpdatedAt, &user.Username,
		)
		if err != nil {
			return nil, 0, err
		}
		if publishedAt.Valid {
			post.PublishedAt = &publishedAt.Time
		}
		if scheduledAt.Valid {
			post.ScheduledAt = &scheduledAt.Time
		}
		post.ThumbnailPath = thumbnailPath.String
		user.ID = post.UserID
		post.User = &user
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, post := range posts {
		if err := r.loadPostRelations(post); err != nil {
			return nil, 0, err
		}
	}

	return posts, total, nil
}

// loadPostRelations 加载文章的标签、图片和点赞数
func (r *postRepository) loadPostRelations(post *model.Post) error {
	tags, err := r.getTagsByPostID(post.ID)
	if err != nil {
		return err
	}
	post.Tags = tags

	images, err := r.GetImagesByPostID(post.ID)
	if err != nil {
		return err
	}
	post.Images = images

	likeCount, err := r.GetLikeCount(post.ID)
	if err != nil {
		return err
	}
	post.LikeCount = likeCount
	return nil
}

func (r *postRepository) getTagsByPostID(postID int) ([]string, error) {
	rows, err := r.db.Query(`SELECT tag FROM post_tags WHERE post_id = ? ORDER BY id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *postRepository) ToggleLike(postID, userID int) (bool, int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		util.Logger.Error("删除点赞失败", zap.Error(err))
		return false, 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, 0, err
	}

	liked := false
	if affected == 0 {
		// 之前没有点赞，插入新的点赞行。
		// 并发的重复插入触发唯一索引冲突，解析为"已点赞"
		_, err := tx.Exec(`INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, NOW())`, postID, userID)
		if err != nil && !isDuplicateKeyErr(err) {
			util.Logger.Error("插入点赞失败", zap.Error(err))
			return false, 0, err
		}
		liked = true
	}

	var likeCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&likeCount); err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}

	util.Logger.Info("点赞状态已切换",
		zap.Int("post_id", postID),
		zap.Int("user_id", userID),
		zap.Bool("liked", liked))
	return liked, likeCount, nil
}

func (r *postRepository) GetLikeCount(postID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&count)
	return count, err
}

func (r *postRepository) IsPostLikedByUser(postID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM likes WHERE post_id = ? AND user_id = ?)`, postID, userID).Scan(&exists)
	return exists, err
}

func insertPostTags(tx *sql.Tx, postID int, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.Exec(`INSERT INTO post_tags (post_id, tag) VALUES (?, ?)`, postID, tag); err != nil {
			return err
		}
	}
	return nil
}

func insertPostImages(tx *sql.Tx, postID int, images []model.PostImage) error {
	for _, image := range images {
		if _, err := tx.Exec(
			`INSERT INTO post_images (post_id, image_path, display_order, created_at) VALUES (?, ?, ?, NOW())`,
			postID, image.ImagePath, image.Order); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicateKeyErr 判断是否为唯一索引冲突（MySQL 错误码 1062）
func isDuplicateKeyErr(err error) bool {
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
