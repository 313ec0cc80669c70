package post

import (
	"blog-backend/internal/errors"
	"blog-backend/internal/model"
	"blog-backend/internal/service"
	"blog-backend/internal/util"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PostHandler 处理文章相关的HTTP请求
type PostHandler struct {
	postService service.PostServiceInterface
}

func NewPostHandler(postService service.PostServiceInterface) *PostHandler {
	return &PostHandler{postService: postService}
}

// CreatePost 处理创建文章的请求，请求体为多部分表单：
// title、content、status、scheduled_at（RFC3339）、tags[]、
// thumbnail（单文件）、images[]（多文件）
func (h *PostHandler) CreatePost(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		util.Logger.Error("无法解析表单数据", zap.Error(err))
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无法解析表单数据"))
		return
	}

	input := &service.CreatePostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Status:  model.PostStatus(c.PostForm("status")),
		Tags:    c.PostFormArray("tags[]"),
	}

	scheduledAt, err := parseScheduledAt(c.PostForm("scheduled_at"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	input.ScheduledAt = scheduledAt

	form, _ := c.MultipartForm()
	if form != nil {
		if files := form.File["thumbnail"]; len(files) > 0 {
			input.Thumbnail = files[0]
		}
		input.Images = form.File["images[]"]
	}

	userID := c.GetInt("user_id")
	post, err := h.postService.CreatePost(userID, input)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, post, "文章创建成功")
}

// UpdatePost 处理更新文章的请求。表单字段与创建相同，另加：
// delete_thumbnail（布尔）、deleted_image_ids（JSON数组字符串）
func (h *PostHandler) UpdatePost(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的文章ID"))
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		util.Logger.Error("无法解析表单数据", zap.Error(err))
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无法解析表单数据"))
		return
	}

	input := &service.UpdatePostInput{
		Title:           c.PostForm("title"),
		Content:         c.PostForm("content"),
		Status:          model.PostStatus(c.PostForm("status")),
		Tags:            c.PostFormArray("tags[]"),
		DeleteThumbnail: c.PostForm("delete_thumbnail") == "true",
	}

	scheduledAt, err := parseScheduledAt(c.PostForm("scheduled_at"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	input.ScheduledAt = scheduledAt

	if raw := c.PostForm("deleted_image_ids"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.DeletedImageIDs); err != nil {
			errors.HandleError(c, errors.New(errors.ErrBadRequest, "deleted_image_ids 必须是整数数组"))
			return
		}
	}

	form, _ := c.MultipartForm()
	if form != nil {
		if files := form.File["thumbnail"]; len(files) > 0 {
			input.NewThumbnail = files[0]
		}
		input.NewImages = form.File["images[]"]
	}

	userID := c.GetInt("user_id")
	post, err := h.postService.UpdatePost(userID, postID, input)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, post, "文章更新成功")
}

// DeletePost 处理删除文章的请求
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的文章ID"))
		return
	}

	userID := c.GetInt("user_id")
	if err := h.postService.DeletePost(userID, postID); err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, nil, "文章删除成功")
}

// GetPost 返回单篇文章。匿名访问者和无权查看的用户
// 对非公开文章一律得到404
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的文章ID"))
		return
	}

	viewerID := c.GetInt("user_id") // 未登录时为 0
	post, err := h.postService.GetPostForViewer(viewerID, postID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, post, "")
}

// ListPosts 返回公开文章列表，支持 search、tags[] 和 page 参数
func (h *PostHandler) ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filters := model.PostFilters{
		Keyword: c.Query("search"),
		Tags:    c.QueryArray("tags[]"),
	}

	posts, total, err := h.postService.ListPublic(filters, page)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, paginated(posts, total, page), "")
}

// ListMine 返回当前用户的全部文章
func (h *PostHandler) ListMine(c *gin.Context) {
	h.listOwn(c, model.ScopeMine)
}

// ListDrafts 返回当前用户的草稿
func (h *PostHandler) ListDrafts(c *gin.Context) {
	h.listOwn(c, model.ScopeDrafts)
}

// ListScheduled 返回当前用户已预约、尚未到点的文章
func (h *PostHandler) ListScheduled(c *gin.Context) {
	h.listOwn(c, model.ScopeScheduled)
}

// ListPublished 返回当前用户已公开的文章
func (h *PostHandler) ListPublished(c *gin.Context) {
	h.listOwn(c, model.ScopePublished)
}

func (h *PostHandler) listOwn(c *gin.Context, scope model.ListScope) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	userID := c.GetInt("user_id")

	posts, total, err := h.postService.ListOwn(userID, scope, page)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, paginated(posts, total, page), "")
}

// ToggleLike 切换当前用户对文章的点赞状态
func (h *PostHandler) ToggleLike(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的文章ID"))
		return
	}

	userID := c.GetInt("user_id")
	liked, likeCount, err := h.postService.ToggleLike(userID, postID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"liked":      liked,
		"like_count": likeCount,
	}, "")
}

func parseScheduledAt(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New(errors.ErrBadRequest, "scheduled_at 必须是 RFC3339 格式")
	}
	return &t, nil
}

func paginated(posts []*model.Post, total, page int) gin.H {
	if page < 1 {
		page = 1
	}
	totalPages := (total + service.PageSize - 1) / service.PageSize
	return gin.H{
		"posts":       posts,
		"total":       total,
		"page":        page,
		"page_size":   service.PageSize,
		"total_pages": totalPages,
	}
}
