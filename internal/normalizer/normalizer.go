// Package normalizer 把大模型返回的文本整理成可解析的 JSON。
//
// 模型输出经常带 markdown 代码块、前后说明文字，或者在字符串里直接换行。
// 这里按顺序尝试若干策略，第一个得到合法 JSON 的策略胜出。
package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ai_course_backend/internal/model"
)

// DefaultMarker 内容中的换行统一替换为该标记
const DefaultMarker = "<br>"

const rawLimit = 2000

// Strategy 把预处理后的文本转换成候选 JSON
type Strategy struct {
	Name  string
	Apply func(text string) (string, error)
}

// Result 成功时附带命中的策略名，便于日志排查
type Result struct {
	JSON     []byte
	Strategy string
}

// ParseError 所有策略都失败
type ParseError struct {
	Attempts []string
	Cause    error
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("AI generated invalid JSON format (tried %s): %v",
		strings.Join(e.Attempts, ", "), e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

var (
	fenceRe       = regexp.MustCompile("(?i)```(?:json)?")
	contentRe     = regexp.MustCompile(`(?s)"content"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	chapterNameRe = regexp.MustCompile(`"chapterName"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	topicsBodyRe  = regexp.MustCompile(`(?s)"topics"\s*:\s*\[(.*)\]`)
	blockSplitRe  = regexp.MustCompile(`\}\s*,\s*\{`)
	topicRe       = regexp.MustCompile(`"topic"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	// content 内可能含未转义的引号，向后匹配到下一个字段或块尾
	looseContentRe = regexp.MustCompile(`(?s)"content"\s*:\s*"(.*?)"\s*(?:,\s*"[A-Za-z_]+"\s*:|$)`)
)

// Preprocess 去掉代码块标记，截取第一个 { 到最后一个 }
func Preprocess(raw string) string {
	text := fenceRe.ReplaceAllString(raw, "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}

func Direct() Strategy {
	return Strategy{
		Name:  "direct",
		Apply: func(text string) (string, error) { return text, nil },
	}
}

// ContentNewlineFix 只处理 "content" 字段内部的换行
func ContentNewlineFix(marker string) Strategy {
	return Strategy{
		Name: "content-newline-fix",
		Apply: func(text string) (string, error) {
			return contentRe.ReplaceAllStringFunc(text, func(m string) string {
				sub := contentRe.FindStringSubmatch(m)
				prefix := m[:len(m)-len(sub[1])-1]
				return prefix + fixNewlines(sub[1], marker) + `"`
			}), nil
		},
	}
}

// FieldExtraction 逐字段抽取章节结构后重新组装，仅适用于章节内容
func FieldExtraction(marker string) Strategy {
	return Strategy{
		Name: "field-extraction",
		Apply: func(text string) (string, error) {
			chapter, err := extractChapter(text, marker)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(chapter)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}
}

func ChapterStrategies(marker string) []Strategy {
	return []Strategy{Direct(), ContentNewlineFix(marker), FieldExtraction(marker)}
}

func LayoutStrategies(marker string) []Strategy {
	return []Strategy{Direct(), ContentNewlineFix(marker)}
}

func fixNewlines(s, marker string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, `\r`, "")
	s = strings.ReplaceAll(s, `\n`, marker)
	s = strings.ReplaceAll(s, "\n", marker)
	return s
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

func extractChapter(text, marker string) (*model.ChapterContent, error) {
	nameMatch := chapterNameRe.FindStringSubmatch(text)
	if nameMatch == nil {
		return nil, errors.New("chapterName not found")
	}
	bodyMatch := topicsBodyRe.FindStringSubmatch(text)
	if bodyMatch == nil {
		return nil, errors.New("topics array not found")
	}

	chapter := &model.ChapterContent{
		ChapterName: unescape(nameMatch[1]),
		Topics:      []model.TopicContent{},
	}
	for _, block := range blockSplitRe.Split(bodyMatch[1], -1) {
		block = strings.TrimSpace(block)
		block = strings.TrimPrefix(block, "{")
		block = strings.TrimSuffix(block, "}")
		block = strings.TrimSpace(block)

		topicMatch := topicRe.FindStringSubmatch(block)
		contentMatch := looseContentRe.FindStringSubmatch(block)
		if topicMatch == nil || contentMatch == nil {
			continue
		}
		chapter.Topics = append(chapter.Topics, model.TopicContent{
			Topic:   unescape(topicMatch[1]),
			Content: fixNewlines(unescape(contentMatch[1]), marker),
		})
	}
	if len(chapter.Topics) == 0 {
		return nil, errors.New("no topic could be extracted")
	}
	return chapter, nil
}

// Normalize 依次尝试各策略，返回第一个合法的 JSON
func Normalize(raw string, strategies []Strategy) (*Result, error) {
	text := Preprocess(raw)
	attempts := make([]string, 0, len(strategies))
	var lastErr error

	for _, s := range strategies {
		attempts = append(attempts, s.Name)
		candidate, err := s.Apply(text)
		if err != nil {
			lastErr = err
			continue
		}
		if !json.Valid([]byte(candidate)) {
			var v interface{}
			lastErr = json.Unmarshal([]byte(candidate), &v)
			continue
		}
		return &Result{JSON: []byte(candidate), Strategy: s.Name}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no strategy configured")
	}
	return nil, &ParseError{
		Attempts: attempts,
		Cause:    lastErr,
		Raw:      truncate(raw, rawLimit),
	}
}

// Decode 规整后解码为 T，解码失败同样视为 ParseError
func Decode[T any](raw string, strategies []Strategy) (*T, string, error) {
	res, err := Normalize(raw, strategies)
	if err != nil {
		return nil, "", err
	}
	var out T
	if err := json.Unmarshal(res.JSON, &out); err != nil {
		return nil, res.Strategy, &ParseError{
			Attempts: []string{res.Strategy},
			Cause:    err,
			Raw:      truncate(raw, rawLimit),
		}
	}
	return &out, res.Strategy, nil
}

func DecodeChapter(raw, marker string) (*model.ChapterContent, string, error) {
	chapter, strategy, err := Decode[model.ChapterContent](raw, ChapterStrategies(marker))
	if err != nil {
		return nil, strategy, err
	}
	if chapter.Topics == nil {
		chapter.Topics = []model.TopicContent{}
	}
	return chapter, strategy, nil
}

// DecodeLayout 兼容 {"course": {...}} 和直接返回大纲两种形态
func DecodeLayout(raw, marker string) (*model.CourseLayout, string, error) {
	res, err := Normalize(raw, LayoutStrategies(marker))
	if err != nil {
		return nil, "", err
	}

	var envelope model.LayoutEnvelope
	if err := json.Unmarshal(res.JSON, &envelope); err == nil && envelope.Course != nil {
		return envelope.Course, res.Strategy, nil
	}

	var layout model.CourseLayout
	if err := json.Unmarshal(res.JSON, &layout); err != nil {
		return nil, res.Strategy, &ParseError{
			Attempts: []string{res.Strategy},
			Cause:    err,
			Raw:      truncate(raw, rawLimit),
		}
	}
	if layout.Name == "" && len(layout.Chapters) == 0 {
		return nil, res.Strategy, &ParseError{
			Attempts: []string{res.Strategy},
			Cause:    errors.New("course outline is empty"),
			Raw:      truncate(raw, rawLimit),
		}
	}
	return &layout, res.Strategy, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
