package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// 以下结构嵌在 Course 的 JSON 列中，不单独建表

// CourseLayout 大模型生成的课程大纲
type CourseLayout struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Duration          string          `json:"duration,omitempty"`
	Category          string          `json:"category,omitempty"`
	Level             string          `json:"level,omitempty"`
	IncludeVideo      FlexBool        `json:"includevideo"`
	Chapter           FlexInt         `json:"chapter"`
	BannerImagePrompt string          `json:"bannerImagePrompt,omitempty"`
	Chapters          []LayoutChapter `json:"chapters"`
}

// LayoutEnvelope 模型通常返回 {"course": {...}}，也可能直接返回大纲本身
type LayoutEnvelope struct {
	Course *CourseLayout `json:"course"`
}

type LayoutChapter struct {
	ChapterName string      `json:"chapterName"`
	Duration    string      `json:"duration,omitempty"`
	Topics      []TopicName `json:"topics"`
}

// TopicName 兼容 "topic" 与 {"topic": "..."} 两种写法
type TopicName string

func (t *TopicName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TopicName(s)
		return nil
	}
	var obj struct {
		Topic string `json:"topic"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Topic != "" {
		*t = TopicName(obj.Topic)
	} else {
		*t = TopicName(obj.Name)
	}
	return nil
}

func TopicStrings(topics []TopicName) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if s := strings.TrimSpace(string(t)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ChapterContent 单章节生成结果
type ChapterContent struct {
	ChapterName string         `json:"chapterName"`
	Topics      []TopicContent `json:"topics"`
}

type TopicContent struct {
	Topic   string  `json:"topic"`
	Content string  `json:"content"`
	Videos  []Video `json:"videos,omitempty"`
}

// Video 视频检索结果，仅保存可嵌入播放所需字段
type Video struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Channel     string `json:"channel"`
	PublishedAt string `json:"publishedAt"`
	EmbedURL    string `json:"embedUrl"`
	WatchURL    string `json:"watchUrl"`
}

// CourseContent 写入 course_content_json 的完整内容
type CourseContent struct {
	CourseName     string             `json:"courseName"`
	BannerImageURL string             `json:"bannerImageUrl,omitempty"`
	Chapters       []GeneratedChapter `json:"chapters"`
	TotalVideos    int                `json:"totalVideos"`
	FailedChapters int                `json:"failedChapters"`
	GeneratedAt    time.Time          `json:"generatedAt"`
}

type GeneratedChapter struct {
	ChapterName string         `json:"chapterName"`
	Duration    string         `json:"duration,omitempty"`
	Topics      []TopicContent `json:"topics"`
	VideoCount  int            `json:"videoCount"`
	Error       string         `json:"error,omitempty"`
}

// FlexInt 模型有时把数字写成字符串
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = FlexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*n = 0
		return nil
	}
	i, _ = strconv.Atoi(strings.TrimSpace(s))
	*n = FlexInt(i)
	return nil
}

type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*b = false
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
