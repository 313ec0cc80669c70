package config

import (
	"encoding/json"
	"log"
	"os"
)

// Tag 表示标签目录中的一个条目
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// 内置标签目录，可通过 TAGS_FILE 覆盖
var defaultTags = []Tag{
	{ID: "tech", Name: "技术"},
	{ID: "life", Name: "生活"},
	{ID: "travel", Name: "旅行"},
	{ID: "food", Name: "美食"},
	{ID: "book", Name: "读书"},
	{ID: "other", Name: "其他"},
}

// TagCatalog 是只读的标签目录，启动时加载一次
var TagCatalog []Tag

var tagIDSet map[string]struct{}

// LoadTagCatalog 加载标签目录。path 为空时使用内置目录
func LoadTagCatalog(path string) {
	TagCatalog = defaultTags
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("错误：无法读取标签目录文件 %s: %v", path, err)
		}
		var tags []Tag
		if err := json.Unmarshal(data, &tags); err != nil {
			log.Fatalf("错误：标签目录文件格式无效: %v", err)
		}
		if len(tags) > 0 {
			TagCatalog = tags
		}
	}

	tagIDSet = make(map[string]struct{}, len(TagCatalog))
	for _, tag := range TagCatalog {
		tagIDSet[tag.ID] = struct{}{}
	}
	log.Printf("标签目录加载完成，共 %d 个标签", len(TagCatalog))
}

// IsValidTag 判断标签ID是否在目录中
func IsValidTag(id string) bool {
	_, ok := tagIDSet[id]
	return ok
}
