package provider

import (
	"context"
	"net/http"
	"net/url"
)

// mail.tm 形状的 REST 端点。路径常量集中在这里，
// 方便对照上游文档排查问题。
const (
	pathDomains  = "/domains"
	pathAccounts = "/accounts"
	pathToken    = "/token"
	pathMessages = "/messages"
)

// Domains 拉取提供商的可用域名目录。
func (c *Client) Domains(ctx context.Context) Result {
	return c.Request(ctx, http.MethodGet, pathDomains, "", nil)
}

// CreateAccount 用给定地址和密码创建提供商账户。
//
// 409/422/400 属于冲突或校验类失败，调用方应换随机本地部分重试。
func (c *Client) CreateAccount(ctx context.Context, address, password string) Result {
	return c.Request(ctx, http.MethodPost, pathAccounts, "", map[string]string{
		"address":  address,
		"password": password,
	})
}

// Token 用账户凭证换取 Bearer 令牌。
func (c *Client) Token(ctx context.Context, address, password string) Result {
	return c.Request(ctx, http.MethodPost, pathToken, "", map[string]string{
		"address":  address,
		"password": password,
	})
}

// ListMessages 列出令牌对应收件箱的邮件摘要。
func (c *Client) ListMessages(ctx context.Context, token string) Result {
	return c.Request(ctx, http.MethodGet, pathMessages, token, nil)
}

// GetMessage 按 ID 获取完整邮件。
func (c *Client) GetMessage(ctx context.Context, token, id string) Result {
	return c.Request(ctx, http.MethodGet, pathMessages+"/"+url.PathEscape(id), token, nil)
}

// DeleteMessage 按 ID 删除单封邮件。
func (c *Client) DeleteMessage(ctx context.Context, token, id string) Result {
	return c.Request(ctx, http.MethodDelete, pathMessages+"/"+url.PathEscape(id), token, nil)
}

// DeleteAccount 删除提供商账户，成功时上游返回 204。
func (c *Client) DeleteAccount(ctx context.Context, token, accountID string) Result {
	return c.Request(ctx, http.MethodDelete, pathAccounts+"/"+url.PathEscape(accountID), token, nil)
}

// DomainNames 从域名目录响应中提取域名列表。
//
// 目录失败、为空或形状不可识别时返回 nil，调用方退回兜底列表。
func DomainNames(res Result) []string {
	if !res.OK {
		return nil
	}

	items, err := listItems(res.Body)
	if err != nil {
		return nil
	}

	var domains []string
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := entry["domain"].(string); ok && name != "" {
			domains = append(domains, name)
		}
	}
	return domains
}
