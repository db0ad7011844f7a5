package service

import (
	"ai_course_backend/internal/model"
	"encoding/json"
	"strings"
)

// Categories 前端可能传字符串或字符串数组
type Categories []string

func (c *Categories) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = nil
		return nil
	}
	*c = Categories{s}
	return nil
}

func (c Categories) String() string {
	return strings.Join(c, ", ")
}

// LayoutRequest 生成课程大纲的请求
type LayoutRequest struct {
	Name              string     `json:"name" binding:"required"`
	Description       string     `json:"description"`
	Chapter           int        `json:"chapter" binding:"required,min=1,max=20"`
	IncludeVideo      bool       `json:"includevideo"`
	Category          Categories `json:"category" swaggertype:"array,string"`
	Level             string     `json:"level" binding:"required"`
	BannerImageOption string     `json:"bannerImageOption"`
	CustomBannerURL   string     `json:"customBannerUrl"`
}

// layoutPromptInput 发给模型的用户输入，不含封面相关字段
type layoutPromptInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Chapter      int    `json:"chapter"`
	IncludeVideo bool   `json:"includevideo"`
	Category     string `json:"category"`
	Level        string `json:"level"`
}

// LayoutResult 大纲生成结果
type LayoutResult struct {
	Course            *model.Course
	Layout            *model.CourseLayout
	BannerImageURL    string
	BannerImageSource string
}

// ChapterRequest 单章节生成
type ChapterRequest struct {
	ChapterName  string            `json:"chapterName"`
	Topics       []model.TopicName `json:"topics" swaggertype:"array,string"`
	IncludeVideo bool              `json:"includeVideo"`
}

// CourseContentRequest 多章节生成，Chapters 非空时走该分支
type CourseContentRequest struct {
	CourseID       string                `json:"courseId"`
	CourseName     string                `json:"courseName"`
	Chapters       []model.LayoutChapter `json:"chapters"`
	IncludeVideo   bool                  `json:"includeVideo"`
	BannerImageURL string                `json:"bannerImageUrl"`
}

// CourseContentResult 多章节生成汇总
type CourseContentResult struct {
	CourseID       string               `json:"courseId"`
	Content        *model.CourseContent `json:"content"`
	ChapterCount   int                  `json:"chapterCount"`
	FailedChapters int                  `json:"failedChapters"`
	TotalVideos    int                  `json:"totalVideos"`
}

// GenerationProgress 多章节生成进度
type GenerationProgress struct {
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Status    string `json:"status"`
	Current   string `json:"current,omitempty"`
}

const (
	ProgressRunning  = "running"
	ProgressFinished = "finished"
	ProgressFailed   = "failed"
)
