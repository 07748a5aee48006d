package domain

import (
	"fmt"
	"time"
)

// Mailbox 表示由上游提供商托管的临时邮箱。
//
// 所有字段都是提供商状态的客户端镜像：账户本身、令牌有效期以及
// 邮件内容均由提供商持有，本系统不做持久化。
type Mailbox struct {
	AccountID string    `json:"id,omitempty"` // 提供商账户 ID（删除账户时需要）
	Address   string    `json:"address"`      // 完整邮箱地址 local@domain
	LocalPart string    `json:"localPart"`    // @ 之前的部分
	Domain    string    `json:"domain"`       // @ 之后的域名
	Password  string    `json:"password"`     // 创建账户时生成的密码
	Token     string    `json:"token"`        // 提供商签发的 Bearer 令牌
	CreatedAt time.Time `json:"createdAt"`
}

// Validate 校验邮箱的地址不变量：Address 必须等于 LocalPart@Domain。
func (m *Mailbox) Validate() error {
	if m.Address != fmt.Sprintf("%s@%s", m.LocalPart, m.Domain) {
		return fmt.Errorf("mailbox address %q does not match %s@%s", m.Address, m.LocalPart, m.Domain)
	}
	if m.Token == "" {
		return fmt.Errorf("mailbox token is empty")
	}
	return nil
}
