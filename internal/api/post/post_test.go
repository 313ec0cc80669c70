package post

import (
	"blog-backend/internal/errors"
	"blog-backend/internal/model"
	"blog-backend/internal/service"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPostService 是 PostServiceInterface 的模拟实现
type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) CreatePost(userID int, input *service.CreatePostInput) (*model.Post, error) {
	args := m.Called(userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) UpdatePost(userID, postID int, input *service.UpdatePostInput) (*model.Post, error) {
	args := m.Called(userID, postID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) DeletePost(userID, postID int) error {
	args := m.Called(userID, postID)
	return args.Error(0)
}

func (m *MockPostService) GetPostForViewer(viewerID, postID int) (*model.Post, error) {
	args := m.Called(viewerID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) ToggleLike(userID, postID int) (bool, int, error) {
	args := m.Called(userID, postID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockPostService) ListPublic(filters model.PostFilters, page int) ([]*model.Post, int, error) {
	args := m.Called(filters, page)
	return args.Get(0).([]*model.Post), args.Int(1), args.Error(2)
}

func (m *MockPostService) ListOwn(userID int, scope model.ListScope, page int) ([]*model.Post, int, error) {
	args := m.Called(userID, scope, page)
	return args.Get(0).([]*model.Post), args.Int(1), args.Error(2)
}

var _ service.PostServiceInterface = (*MockPostService)(nil)

func setUserID(id int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

// TestGetPost 测试获取单篇文章的处理器
func TestGetPost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.GET("/posts/:id", handler.GetPost)

	// 存在且可见
	mockService.On("GetPostForViewer", 0, 1).Return(&model.Post{ID: 1, Title: "标题"}, nil)
	req, _ := http.NewRequest("GET", "/posts/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 不存在或不可见，一律404
	mockService.On("GetPostForViewer", 0, 2).Return(nil, errors.New(errors.ErrPostNotFound, "文章不存在"))
	req, _ = http.NewRequest("GET", "/posts/2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非数字ID
	req, _ = http.NewRequest("GET", "/posts/abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}

// TestListPosts 测试公开列表的查询参数解析和分页信封
func TestListPosts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.GET("/posts", handler.ListPosts)

	expectedFilters := model.PostFilters{Keyword: "golang", Tags: []string{"tech", "life"}}
	mockService.On("ListPublic", expectedFilters, 2).Return([]*model.Post{{ID: 1}}, 25, nil)

	req, _ := http.NewRequest("GET", "/posts?search=golang&tags[]=tech&tags[]=life&page=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data struct {
			Total      int `json:"total"`
			Page       int `json:"page"`
			PageSize   int `json:"page_size"`
			TotalPages int `json:"total_pages"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, 25, response.Data.Total)
	assert.Equal(t, 2, response.Data.Page)
	assert.Equal(t, 10, response.Data.PageSize)
	assert.Equal(t, 3, response.Data.TotalPages)
	mockService.AssertExpectations(t)
}

// TestListOwnScopes 测试"我的文章"各范围路由使用正确的过滤范围
func TestListOwnScopes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.Use(setUserID(1))
	router.GET("/posts/my", handler.ListMine)
	router.GET("/posts/drafts", handler.ListDrafts)
	router.GET("/posts/scheduled", handler.ListScheduled)
	router.GET("/posts/published", handler.ListPublished)

	routes := map[string]model.ListScope{
		"/posts/my":        model.ScopeMine,
		"/posts/drafts":    model.ScopeDrafts,
		"/posts/scheduled": model.ScopeScheduled,
		"/posts/published": model.ScopePublished,
	}
	for path, scope := range routes {
		mockService.On("ListOwn", 1, scope, 1).Return([]*model.Post{}, 0, nil).Once()
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	mockService.AssertExpectations(t)
}

// TestCreatePost 测试创建文章的多部分表单解析
func TestCreatePost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.Use(setUserID(1))
	router.POST("/posts", handler.CreatePost)

	scheduledAt := time.Now().Add(time.Hour).Truncate(time.Second)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("title", "标题")
	writer.WriteField("content", "内容")
	writer.WriteField("status", "published")
	writer.WriteField("tags[]", "tech")
	writer.WriteField("tags[]", "life")
	writer.WriteField("scheduled_at", scheduledAt.Format(time.RFC3339))
	writer.Close()

	mockService.On("CreatePost", 1, mock.MatchedBy(func(input *service.CreatePostInput) bool {
		return input.Title == "标题" &&
			input.Status == model.PostStatusPublished &&
			len(input.Tags) == 2 &&
			input.ScheduledAt != nil && input.ScheduledAt.Equal(scheduledAt)
	})).Return(&model.Post{ID: 1}, nil)

	req, _ := http.NewRequest("POST", "/posts", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	// 非法的 scheduled_at 格式
	var badBody bytes.Buffer
	writer = multipart.NewWriter(&badBody)
	writer.WriteField("title", "标题")
	writer.WriteField("content", "内容")
	writer.WriteField("status", "draft")
	writer.WriteField("scheduled_at", "明天")
	writer.Close()

	req, _ = http.NewRequest("POST", "/posts", &badBody)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestUpdatePost 测试更新文章时 deleted_image_ids 的解析
func TestUpdatePost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.Use(setUserID(1))
	router.PUT("/posts/:id", handler.UpdatePost)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("title", "新标题")
	writer.WriteField("content", "内容")
	writer.WriteField("status", "draft")
	writer.WriteField("delete_thumbnail", "true")
	writer.WriteField("deleted_image_ids", "[3,5]")
	writer.Close()

	mockService.On("UpdatePost", 1, 10, mock.MatchedBy(func(input *service.UpdatePostInput) bool {
		return input.DeleteThumbnail &&
			len(input.DeletedImageIDs) == 2 &&
			input.DeletedImageIDs[0] == 3 && input.DeletedImageIDs[1] == 5
	})).Return(&model.Post{ID: 10}, nil)

	req, _ := http.NewRequest("PUT", "/posts/10", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

// TestToggleLike 测试点赞切换的处理器
func TestToggleLike(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.Use(setUserID(1))
	router.POST("/posts/:id/like", handler.ToggleLike)

	mockService.On("ToggleLike", 1, 10).Return(true, 3, nil)

	req, _ := http.NewRequest("POST", "/posts/10/like", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data struct {
			Liked     bool `json:"liked"`
			LikeCount int  `json:"like_count"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.True(t, response.Data.Liked)
	assert.Equal(t, 3, response.Data.LikeCount)

	// 给非公开文章点赞
	mockService.On("ToggleLike", 1, 11).Return(false, 0, errors.New(errors.ErrForbidden, "只能给公开的文章点赞"))
	req, _ = http.NewRequest("POST", "/posts/11/like", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertExpectations(t)
}

// TestDeletePost 测试删除文章的处理器
func TestDeletePost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockPostService)
	handler := NewPostHandler(mockService)

	router := gin.New()
	router.Use(setUserID(2))
	router.DELETE("/posts/:id", handler.DeletePost)

	// 非作者删除被拒绝
	mockService.On("DeletePost", 2, 10).Return(errors.New(errors.ErrForbidden, "没有删除这篇文章的权限"))

	req, _ := http.NewRequest("DELETE", "/posts/10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertExpectations(t)
}
