package service

import (
	"blog-backend/config"
	"blog-backend/internal/errors"
	"blog-backend/internal/model"
	"blog-backend/internal/repository/interfaces"
	"blog-backend/internal/storage"
	"blog-backend/internal/util"
	"fmt"
	"mime/multipart"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// PageSize 是所有文章列表的固定分页大小
const PageSize = 10

// PostServiceInterface 定义了文章服务的接口，便于测试
type PostServiceInterface interface {
	CreatePost(userID int, input *CreatePostInput) (*model.Post, error)
	UpdatePost(userID, postID int, input *UpdatePostInput) (*model.Post, error)
	DeletePost(userID, postID int) error
	GetPostForViewer(viewerID, postID int) (*model.Post, error)
	ToggleLike(userID, postID int) (liked bool, likeCount int, err error)
	ListPublic(filters model.PostFilters, page int) ([]*model.Post, int, error)
	ListOwn(userID int, scope model.ListScope, page int) ([]*model.Post, int, error)
}

// CreatePostInput 表示创建文章的完整输入
type CreatePostInput struct {
	Title       string
	Content     string
	Status      model.PostStatus
	Tags        []string
	ScheduledAt *time.Time
	Thumbnail   *multipart.FileHeader
	Images      []*multipart.FileHeader
}

// UpdatePostInput 表示更新文章的完整输入。
// 更新函数接收完整的新状态，不依赖隐式的脏字段跟踪
type UpdatePostInput struct {
	Title           string
	Content         string
	Status          model.PostStatus
	Tags            []string
	ScheduledAt     *time.Time
	DeleteThumbnail bool
	NewThumbnail    *multipart.FileHeader
	DeletedImageIDs []int
	NewImages       []*multipart.FileHeader
}

// PostService 处理文章聚合的业务逻辑：
// 生命周期校验、授权、图片资源的委托存储
type PostService struct {
	repo    interfaces.PostRepository
	storage storage.FileStorage
}

func NewPostService(repo interfaces.PostRepository, fileStorage storage.FileStorage) *PostService {
	return &PostService{repo: repo, storage: fileStorage}
}

var _ PostServiceInterface = (*PostService)(nil)

// CreatePost 创建文章及其图片。图片先写入存储，
// 存储失败的图片不会产生数据库行
func (s *PostService) CreatePost(userID int, input *CreatePostInput) (*model.Post, error) {
	if err := validatePostFields(input.Title, input.Content, input.Status, input.Tags); err != nil {
		return nil, err
	}
	if input.ScheduledAt != nil && !input.ScheduledAt.After(time.Now()) {
		return nil, errors.NewValidation("输入内容有问题", map[string]string{
			"scheduled_at": "预约时间必须在未来",
		})
	}
	if err := validateImageUploads(input.Thumbnail, input.Images); err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:      userID,
		Title:       input.Title,
		Content:     input.Content,
		Status:      input.Status,
		ScheduledAt: input.ScheduledAt,
		Tags:        input.Tags,
	}
	if post.Status == model.PostStatusPublished && post.ScheduledAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}

	// 先存缩略图
	if input.Thumbnail != nil {
		path, err := s.uploadImage(input.Thumbnail, "thumbnails")
		if err != nil {
			return nil, err
		}
		post.ThumbnailPath = path
	}

	// 再存正文图片，顺序值为上传数组的下标
	images := make([]model.PostImage, 0, len(input.Images))
	for i, file := range input.Images {
		path, err := s.uploadImage(file, "images")
		if err != nil {
			return nil, err
		}
		images = append(images, model.PostImage{ImagePath: path, Order: i})
	}

	if err := s.repo.CreatePost(post, images); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "创建文章失败", err)
	}

	created, err := s.repo.GetPostByID(post.ID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "读取新文章失败", err)
	}
	s.decoratePost(created)

	util.Logger.Info("文章创建成功",
		zap.Int("post_id", created.ID),
		zap.Int("user_id", userID),
		zap.String("status", string(created.Status)))
	return created, nil
}

// UpdatePost 更新文章。处理顺序固定：
// 删除指定图片（先资源后行）→ 缩略图替换或删除 → 追加新图片
// （顺序值从现有最大值继续）→ 更新标量字段
func (s *PostService) UpdatePost(userID, postID int, input *UpdatePostInput) (*model.Post, error) {
	post, err := s.repo.GetPostByID(postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询文章失败", err)
	}
	if post == nil {
		return nil, errors.New(errors.ErrPostNotFound, "文章不存在")
	}
	if !CanUpdatePost(userID, post) {
		return nil, errors.New(errors.ErrForbidden, "没有编辑这篇文章的权限")
	}

	if err := validatePostFields(input.Title, input.Content, input.Status, input.Tags); err != nil {
		return nil, err
	}
	// 预约时间只在被设置的那一刻要求在未来，之后不再重新校验：
	// 已过期的预约时间正是文章对外公开的依据
	if input.ScheduledAt != nil &&
		(post.ScheduledAt == nil || !input.ScheduledAt.Equal(*post.ScheduledAt)) &&
		!input.ScheduledAt.After(time.Now()) {
		return nil, errors.NewValidation("输入内容有问题", map[string]string{
			"scheduled_at": "预约时间必须在未来",
		})
	}
	if err := validateImageUploads(input.NewThumbnail, input.NewImages); err != nil {
		return nil, err
	}

	// (1) 删除指定的图片：先删存储资源，再删行。
	// 不属于这篇文章的ID被忽略
	ownedImages := make(map[int]model.PostImage, len(post.Images))
	for _, image := range post.Images {
		ownedImages[image.ID] = image
	}
	deletedIDs := make([]int, 0, len(input.DeletedImageIDs))
	for _, imageID := range input.DeletedImageIDs {
		image, ok := ownedImages[imageID]
		if !ok {
			continue
		}
		if err := s.storage.DeleteFile(image.ImagePath); err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "删除图片资源失败", err)
		}
		deletedIDs = append(deletedIDs, imageID)
	}

	// (2) 缩略图：新缩略图优先于删除标记
	if input.NewThumbnail != nil {
		if post.ThumbnailPath != "" {
			if err := s.storage.DeleteFile(post.ThumbnailPath); err != nil {
				return nil, errors.Wrap(errors.ErrStorage, "删除旧缩略图失败", err)
			}
		}
		path, err := s.uploadImage(input.NewThumbnail, "thumbnails")
		if err != nil {
			return nil, err
		}
		post.ThumbnailPath = path
	} else if input.DeleteThumbnail && post.ThumbnailPath != "" {
		if err := s.storage.DeleteFile(post.ThumbnailPath); err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "删除缩略图失败", err)
		}
		post.ThumbnailPath = ""
	}

	// (3) 追加新图片，顺序值从现有最大值之后继续，避免与幸存图片冲突
	newImages := make([]model.PostImage, 0, len(input.NewImages))
	if len(input.NewImages) > 0 {
		maxOrder, err := s.repo.MaxImageOrder(postID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "查询图片顺序失败", err)
		}
		for i, file := range input.NewImages {
			path, err := s.uploadImage(file, "images")
			if err != nil {
				return nil, err
			}
			newImages = append(newImages, model.PostImage{ImagePath: path, Order: maxOrder + 1 + i})
		}
	}

	// (4) 更新标量字段
	wasPublished := post.Status == model.PostStatusPublished
	post.Title = input.Title
	post.Content = input.Content
	post.Status = input.Status
	post.Tags = input.Tags
	post.ScheduledAt = input.ScheduledAt
	if !wasPublished && post.Status == model.PostStatusPublished && post.PublishedAt == nil && post.ScheduledAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := s.repo.UpdatePost(post, deletedIDs, newImages); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "更新文章失败", err)
	}

	updated, err := s.repo.GetPostByID(postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "读取更新后的文章失败", err)
	}
	s.decoratePost(updated)

	util.Logger.Info("文章更新成功", zap.Int("post_id", postID), zap.Int("user_id", userID))
	return updated, nil
}

// DeletePost 删除文章：先删除所有图片和缩略图的存储资源，
// 再删除文章行，点赞和图片行由级联删除
func (s *PostService) DeletePost(userID, postID int) error {
	post, err := s.repo.GetPostByID(postID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询文章失败", err)
	}
	if post == nil {
		return errors.New(errors.ErrPostNotFound, "文章不存在")
	}
	if !CanDeletePost(userID, post) {
		return errors.New(errors.ErrForbidden, "没有删除这篇文章的权限")
	}

	for _, image := range post.Images {
		if err := s.storage.DeleteFile(image.ImagePath); err != nil {
			return errors.Wrap(errors.ErrStorage, "删除图片资源失败", err)
		}
	}
	if post.ThumbnailPath != "" {
		if err := s.storage.DeleteFile(post.ThumbnailPath); err != nil {
			return errors.Wrap(errors.ErrStorage, "删除缩略图资源失败", err)
		}
	}

	if err := s.repo.DeletePost(postID); err != nil {
		return errors.Wrap(errors.ErrDatabase, "删除文章失败", err)
	}

	util.Logger.Info("文章删除成功",
		zap.Int("post_id", postID),
		zap.Int("user_id", userID),
		zap.Int("image_count", len(post.Images)))
	return nil
}

// GetPostForViewer 获取单篇文章。访问者无权查看的非公开文章
// 一律返回"不存在"，避免泄露私密内容的存在性
func (s *PostService) GetPostForViewer(viewerID, postID int) (*model.Post, error) {
	post, err := s.repo.GetPostByID(postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询文章失败", err)
	}
	if post == nil || !CanViewPost(viewerID, post, time.Now()) {
		return nil, errors.New(errors.ErrPostNotFound, "文章不存在")
	}

	if viewerID != 0 {
		isLiked, err := s.repo.IsPostLikedByUser(postID, viewerID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "查询点赞状态失败", err)
		}
		post.IsLiked = isLiked
	}

	s.decoratePost(post)
	return post, nil
}

// ToggleLike 切换点赞状态，返回切换后的状态和当前点赞数。
// 连续调用两次回到原始状态
func (s *PostService) ToggleLike(userID, postID int) (bool, int, error) {
	post, err := s.repo.GetPostByID(postID)
	if err != nil {
		return false, 0, errors.Wrap(errors.ErrDatabase, "查询文章失败", err)
	}
	if post == nil || !CanViewPost(userID, post, time.Now()) {
		return false, 0, errors.New(errors.ErrPostNotFound, "文章不存在")
	}
	if !CanLikePost(userID, post, time.Now()) {
		// 作者可以看到自己的草稿和预约文章，但不能点赞
		return false, 0, errors.New(errors.ErrForbidden, "只能给公开的文章点赞")
	}

	liked, likeCount, err := s.repo.ToggleLike(postID, userID)
	if err != nil {
		return false, 0, errors.Wrap(errors.ErrDatabase, "切换点赞状态失败", err)
	}
	return liked, likeCount, nil
}

// ListPublic 返回公开列表：仅公开可见的文章，
// 标签过滤（多个标签为OR）与关键词过滤（标题或正文）之间为AND
func (s *PostService) ListPublic(filters model.PostFilters, page int) ([]*model.Post, int, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.repo.ListPublic(filters, page, PageSize)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrDatabase, "查询文章列表失败", err)
	}
	for _, post := range posts {
		s.decoratePost(post)
	}
	return posts, total, nil
}

// ListOwn 返回当前用户自己的文章列表
func (s *PostService) ListOwn(userID int, scope model.ListScope, page int) ([]*model.Post, int, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.repo.ListByUser(userID, scope, page, PageSize)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrDatabase, "查询文章列表失败", err)
	}
	for _, post := range posts {
		s.decoratePost(post)
	}
	return posts, total, nil
}

func (s *PostService) uploadImage(file *multipart.FileHeader, dir string) (string, error) {
	filename := util.GenerateUniqueFilename(file.Filename)
	path := fmt.Sprintf("%s/%s", dir, filename)
	storedPath, err := s.storage.UploadFile(file, path)
	if err != nil {
		util.Logger.Error("图片上传失败", zap.Error(err), zap.String("path", path))
		return "", errors.Wrap(errors.ErrStorage, "图片上传失败", err)
	}
	return storedPath, nil
}

// decoratePost 填充派生的URL字段。这些字段每次读取时计算，从不持久化
func (s *PostService) decoratePost(post *model.Post) {
	if post == nil {
		return
	}
	if post.ThumbnailPath != "" {
		post.ThumbnailURL = s.storage.URL(post.ThumbnailPath)
	}
	for i := range post.Images {
		post.Images[i].ImageURL = s.storage.URL(post.Images[i].ImagePath)
	}
}

func validatePostFields(title, content string, status model.PostStatus, tags []string) error {
	fields := map[string]string{}
	if title == "" {
		fields["title"] = "标题是必填的"
	} else if utf8.RuneCountInString(title) > 255 {
		fields["title"] = "标题不能超过255个字符"
	}
	if content == "" {
		fields["content"] = "内容是必填的"
	}
	if !status.IsValid() {
		fields["status"] = "无效的状态"
	}
	for _, tag := range tags {
		if !config.IsValidTag(tag) {
			fields["tags"] = fmt.Sprintf("未知的标签: %s", tag)
			break
		}
	}
	if len(fields) > 0 {
		return errors.NewValidation("输入内容有问题", fields)
	}
	return nil
}

func validateImageUploads(thumbnail *multipart.FileHeader, images []*multipart.FileHeader) error {
	fields := map[string]string{}
	if thumbnail != nil && !util.IsAllowedImage(thumbnail.Filename) {
		fields["thumbnail"] = "缩略图只支持 JPEG、PNG、GIF 格式"
	}
	for _, file := range images {
		if !util.IsAllowedImage(file.Filename) {
			fields["images"] = fmt.Sprintf("不支持的图片格式: %s", file.Filename)
			break
		}
	}
	if len(fields) > 0 {
		return errors.NewValidation("输入内容有问题", fields)
	}
	return nil
}
