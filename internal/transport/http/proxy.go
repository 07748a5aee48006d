package httptransport

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/relay/internal/domain"
	"tempmail/relay/internal/monitoring"
	"tempmail/relay/internal/otp"
	"tempmail/relay/internal/service"
)

// Handler 聚合所有代理端点的处理逻辑。
type Handler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

type mailboxResponse struct {
	ID        string    `json:"id,omitempty"`
	Address   string    `json:"address"`
	LocalPart string    `json:"localPart"`
	Domain    string    `json:"domain"`
	Password  string    `json:"password"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageListResponse struct {
	Items []domain.MessageSummary `json:"items"`
	Count int                     `json:"count"`
}

type messageResponse struct {
	*domain.MessageFull
	OTP string `json:"otp,omitempty"`
}

type upstreamDetail struct {
	Stage  string `json:"stage,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// createMailbox godoc
// @Summary 创建临时邮箱
// @Description 在上游提供商创建账户并换取访问令牌
// @Tags Mailboxes
// @Produce json
// @Success 201 {object} Response
// @Failure 502 {object} Response
// @Router /v1/create [post]
func (h *Handler) createMailbox(c *gin.Context) {
	mailbox, err := h.mailboxes.Create(c.Request.Context())
	if err != nil {
		var creationErr *service.CreationError
		if errors.As(err, &creationErr) {
			h.log.Warn("mailbox creation failed",
				zap.String("stage", creationErr.Stage),
				zap.Int("status", creationErr.Status),
			)
			UpstreamFailure(c, creationErrCode(creationErr), MsgMailboxCreateFailed, upstreamDetail{
				Stage:  creationErr.Stage,
				Status: creationErr.Status,
				Detail: creationErr.Detail,
			})
			return
		}
		h.log.Error("unexpected creation failure", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Created(c, mailboxResponse{
		ID:        mailbox.AccountID,
		Address:   mailbox.Address,
		LocalPart: mailbox.LocalPart,
		Domain:    mailbox.Domain,
		Password:  mailbox.Password,
		Token:     mailbox.Token,
		CreatedAt: mailbox.CreatedAt,
	})
}

// listMessages godoc
// @Summary 获取邮件列表
// @Description 用邮箱令牌列出收件箱摘要
// @Tags Messages
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 502 {object} Response
// @Router /v1/messages [get]
func (h *Handler) listMessages(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		BadRequest(c, ErrCodeMissingToken, MsgMissingToken)
		return
	}

	inbox, err := h.messages.List(c.Request.Context(), token)
	if err != nil {
		h.upstreamError(c, err, MsgMessageListFailed)
		return
	}

	// 不可识别的信封：原样返回解码体供调用方检查
	if inbox.Messages == nil && inbox.Raw != nil {
		Success(c, inbox.Raw)
		return
	}

	Success(c, messageListResponse{
		Items: inbox.Messages,
		Count: len(inbox.Messages),
	})
}

// getMessage godoc
// @Summary 获取邮件详情
// @Description 按 ID 获取完整邮件并附带启发式提取的验证码
// @Tags Messages
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 502 {object} Response
// @Router /v1/message [get]
func (h *Handler) getMessage(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		BadRequest(c, ErrCodeMissingToken, MsgMissingToken)
		return
	}
	id := c.Query("id")
	if id == "" {
		BadRequest(c, ErrCodeMissingID, MsgMissingID)
		return
	}

	msg, err := h.messages.Read(c.Request.Context(), token, id)
	if err != nil {
		h.upstreamError(c, err, MsgMessageGetFailed)
		return
	}

	resp := messageResponse{MessageFull: msg}
	if code, ok := otp.ExtractFromMessage(msg); ok {
		resp.OTP = code
	}
	Success(c, resp)
}

// deleteMessage 删除单封邮件。
func (h *Handler) deleteMessage(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		BadRequest(c, ErrCodeMissingToken, MsgMissingToken)
		return
	}
	id := c.Query("id")
	if id == "" {
		BadRequest(c, ErrCodeMissingID, MsgMissingID)
		return
	}

	if err := h.messages.Delete(c.Request.Context(), token, id); err != nil {
		h.upstreamError(c, err, MsgMessageDeleteFailed)
		return
	}
	Success(c, gin.H{"ok": true})
}

type deleteAccountRequest struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// deleteAccount godoc
// @Summary 删除邮箱账户
// @Description 尽力删除上游账户，失败时透传上游状态
// @Tags Mailboxes
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /v1/delete [post]
func (h *Handler) deleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid_request", MsgInvalidRequest)
		return
	}
	if req.Token == "" {
		BadRequest(c, ErrCodeMissingToken, MsgMissingToken)
		return
	}
	if req.ID == "" {
		BadRequest(c, ErrCodeMissingID, MsgMissingID)
		return
	}

	err := h.mailboxes.DeleteAccount(c.Request.Context(), req.Token, req.ID)
	if err != nil {
		var upstreamErr *service.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.Status > 0 {
			// 透传上游状态，调用方自行决定是否清除本地状态
			PassthroughStatus(c, upstreamErr.Status, ErrCodeUpstreamError, MsgMailboxDeleteFailed, upstreamDetail{
				Stage:  upstreamErr.Stage,
				Status: upstreamErr.Status,
				Detail: upstreamErr.Detail,
			})
			return
		}
		UpstreamFailure(c, ErrCodeUpstreamError, MsgMailboxDeleteFailed, upstreamDetail{Detail: err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMailboxDeleted()
	}
	Success(c, gin.H{"ok": true})
}

// listDomains 返回当前可用于创建的域名列表（目录或兜底）。
func (h *Handler) listDomains(c *gin.Context) {
	domains := h.mailboxes.Domains(c.Request.Context())
	Success(c, gin.H{"domains": domains})
}

// upstreamError 把查询类失败映射为 HTTP 响应。
// 认证类失败返回 401 提示重建邮箱，其余为 502 上游错误。
func (h *Handler) upstreamError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrMissingToken) {
		BadRequest(c, ErrCodeMissingToken, MsgMissingToken)
		return
	}
	if errors.Is(err, service.ErrMissingID) {
		BadRequest(c, ErrCodeMissingID, MsgMissingID)
		return
	}

	var upstreamErr *service.UpstreamError
	if errors.As(err, &upstreamErr) {
		if upstreamErr.AuthFailure {
			Unauthorized(c, ErrCodeInvalidToken, MsgTokenInvalid)
			return
		}
		UpstreamFailure(c, ErrCodeUpstreamError, msg, upstreamDetail{
			Stage:  upstreamErr.Stage,
			Status: upstreamErr.Status,
			Detail: upstreamErr.Detail,
		})
		return
	}

	h.log.Error("unexpected failure", zap.Error(err))
	InternalError(c, MsgInternalError)
}

// creationErrCode 把创建失败阶段映射为机器可读错误标识。
func creationErrCode(err *service.CreationError) string {
	switch err.Stage {
	case service.StageToken:
		return ErrCodeTokenFailed
	case service.StageExhausted:
		return ErrCodeExhausted
	default:
		return ErrCodeCreateFailed
	}
}

// extractToken 从 Authorization Bearer 头或 token 查询参数提取令牌。
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}
