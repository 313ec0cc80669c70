package tag

import (
	"blog-backend/config"
	"blog-backend/internal/errors"

	"github.com/gin-gonic/gin"
)

// TagHandler 提供标签目录的只读访问
type TagHandler struct{}

func NewTagHandler() *TagHandler {
	return &TagHandler{}
}

// ListTags 返回固定的标签目录，文章创建和过滤都以它为准
func (h *TagHandler) ListTags(c *gin.Context) {
	errors.HandleSuccess(c, config.TagCatalog, "")
}
