package domain

import "time"

// MessageSummary 是邮件列表渲染用的轻量投影。
type MessageSummary struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Intro     string    `json:"intro"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageFull 是按 ID 懒加载的完整邮件。
type MessageFull struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
}
