package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tempmail/relay/internal/domain"
)

// ErrUnrecognizedEnvelope 表示响应体不属于任何已知的集合包裹形状。
// 调用方拿到该错误时仍可检查原始解码结果，而不是静默丢失数据。
var ErrUnrecognizedEnvelope = errors.New("unrecognized collection envelope")

// listItems 从已解码的响应体中剥出集合元素。
//
// 按顺序识别以下包裹形状（§ 不同提供商返回的信封并不一致）：
//  1. {"hydra:member": [...]}   — mail.tm / API Platform
//  2. [...]                      — 1secmail 等返回裸数组
//  3. {"messages": [...]}        — 部分代理再包一层
func listItems(body interface{}) ([]interface{}, error) {
	switch v := body.(type) {
	case map[string]interface{}:
		if member, ok := v["hydra:member"].([]interface{}); ok {
			return member, nil
		}
		if messages, ok := v["messages"].([]interface{}); ok {
			return messages, nil
		}
		return nil, ErrUnrecognizedEnvelope
	case []interface{}:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, ErrUnrecognizedEnvelope
	}
}

// NormalizeSummaries 把异构的邮件列表响应体归一化为摘要序列。
//
// 不可识别的包裹形状返回 ErrUnrecognizedEnvelope，原始 body 由
// 调用方继续持有以便透传检查。
func NormalizeSummaries(body interface{}) ([]domain.MessageSummary, error) {
	items, err := listItems(body)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.MessageSummary, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		summaries = append(summaries, domain.MessageSummary{
			ID:        stringField(entry, "id"),
			From:      fromField(entry["from"]),
			Subject:   stringField(entry, "subject"),
			Intro:     stringField(entry, "intro"),
			CreatedAt: timeField(entry),
		})
	}
	return summaries, nil
}

// NormalizeMessage 把单封邮件响应体归一化为完整邮件。
func NormalizeMessage(body interface{}) (*domain.MessageFull, error) {
	entry, ok := body.(map[string]interface{})
	if !ok {
		return nil, ErrUnrecognizedEnvelope
	}
	// 有的变体把邮件再包一层 {"message": {...}}
	if inner, ok := entry["message"].(map[string]interface{}); ok {
		entry = inner
	}

	msg := &domain.MessageFull{
		ID:        stringField(entry, "id"),
		From:      fromField(entry["from"]),
		To:        toField(entry["to"]),
		Subject:   stringField(entry, "subject"),
		Text:      firstString(entry, "text", "textBody"),
		HTML:      htmlField(entry),
		CreatedAt: timeField(entry),
	}
	return msg, nil
}

// stringField 读取字符串字段，数字 ID（1secmail）转为十进制文本。
func stringField(entry map[string]interface{}, key string) string {
	switch v := entry[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// firstString 按给定顺序返回第一个非空字符串字段。
func firstString(entry map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// fromField 归一化发件人：mail.tm 用 {address,name}，1secmail 用裸字符串。
func fromField(v interface{}) string {
	switch from := v.(type) {
	case string:
		return from
	case map[string]interface{}:
		if addr, ok := from["address"].(string); ok {
			return addr
		}
	}
	return ""
}

// toField 归一化收件人列表。
func toField(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}

	var out []string
	for _, item := range items {
		switch to := item.(type) {
		case string:
			out = append(out, to)
		case map[string]interface{}:
			if addr, ok := to["address"].(string); ok {
				out = append(out, addr)
			}
		}
	}
	return out
}

// htmlField 归一化 HTML 正文：mail.tm 的 html 是字符串数组，
// 1secmail 的 htmlBody 是单个字符串。
func htmlField(entry map[string]interface{}) string {
	switch v := entry["html"].(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	}
	if s, ok := entry["htmlBody"].(string); ok {
		return s
	}
	return ""
}

// timeField 解析创建时间：createdAt（RFC3339）或 date（1secmail 格式）。
func timeField(entry map[string]interface{}) time.Time {
	for _, key := range []string{"createdAt", "date"} {
		s, ok := entry[key].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
