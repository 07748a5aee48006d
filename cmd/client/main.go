package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"tempmail/relay/internal/config"
	"tempmail/relay/internal/domain"
	"tempmail/relay/internal/logger"
	"tempmail/relay/internal/otp"
	"tempmail/relay/internal/poller"
	"tempmail/relay/internal/provider"
	"tempmail/relay/internal/service"
	"tempmail/relay/internal/state"
)

// main 运行终端收件箱客户端：创建（或恢复）一个临时邮箱，
// 轮询新邮件并在终端打印，支持读信、换新邮箱和丢弃邮箱。
func main() {
	statePath := flag.String("state", state.DefaultPath(), "状态文件位置")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	if cfg.Log.Development {
		log = logger.NewDevelopmentLogger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.RequestTimeout,
		provider.WithLogger(log),
		provider.WithRateLimit(cfg.Provider.RequestsPerSec),
	)
	mailboxes := service.NewMailboxService(client, cfg, nil, log)
	messages := service.NewMessageService(client, log)
	store := state.NewStore(*statePath)

	mailbox, err := loadOrCreate(ctx, store, mailboxes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare mailbox: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("邮箱地址: %s\n", mailbox.Address)
	fmt.Println("命令: list | open <消息ID> | new | delete | quit")

	app := &app{
		mailboxes: mailboxes,
		messages:  messages,
		store:     store,
		mailbox:   mailbox,
		log:       log,
	}
	app.startPolling(ctx, cfg)

	// 标准输入命令循环
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			app.stopPolling()
			fmt.Println("\n再见")
			return
		case line, ok := <-lines:
			if !ok {
				app.stopPolling()
				return
			}
			if app.handle(ctx, cfg, strings.TrimSpace(line)) {
				app.stopPolling()
				return
			}
		}
	}
}

type app struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	store     *state.Store
	mailbox   *domain.Mailbox
	poll      *poller.Poller
	log       *zap.Logger
}

// loadOrCreate 恢复保存的邮箱，没有时向提供商申请一个新邮箱。
func loadOrCreate(ctx context.Context, store *state.Store, mailboxes *service.MailboxService) (*domain.Mailbox, error) {
	mailbox, err := store.Load()
	if err == nil {
		fmt.Println("已恢复保存的邮箱")
		return mailbox, nil
	}
	if err != state.ErrNoMailbox {
		fmt.Fprintf(os.Stderr, "状态文件损坏，重新创建邮箱: %v\n", err)
	}

	mailbox, err = mailboxes.Create(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Save(mailbox); err != nil {
		fmt.Fprintf(os.Stderr, "警告: 保存状态失败: %v\n", err)
	}
	return mailbox, nil
}

// startPolling 启动收件箱轮询，新邮件到达时打印摘要与验证码。
func (a *app) startPolling(ctx context.Context, cfg *config.Config) {
	token := a.mailbox.Token
	a.poll = poller.New(
		func(ctx context.Context) ([]domain.MessageSummary, error) {
			inbox, err := a.messages.List(ctx, token)
			if err != nil {
				return nil, err
			}
			return inbox.Messages, nil
		},
		cfg.Poll.Interval,
		poller.WithLogger(a.log),
		poller.OnNew(func(msg domain.MessageSummary) {
			fmt.Printf("\n[新邮件] %s  来自 %s  主题: %s\n", msg.ID, msg.From, msg.Subject)
			a.printOTP(ctx, token, msg.ID)
		}),
		poller.OnError(func(err error) {
			fmt.Fprintf(os.Stderr, "轮询失败（下次间隔自动重试）: %v\n", err)
		}),
	)
	a.poll.Start(ctx)
}

func (a *app) stopPolling() {
	if a.poll != nil {
		a.poll.Stop()
		a.poll = nil
	}
}

// printOTP 拉取完整邮件并尝试提取验证码。
func (a *app) printOTP(ctx context.Context, token, id string) {
	full, err := a.messages.Read(ctx, token, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取邮件失败: %v\n", err)
		return
	}
	if code, ok := otp.ExtractFromMessage(full); ok {
		fmt.Printf("  验证码: %s\n", code)
	}
}

// handle 处理一条终端命令，返回 true 表示退出。
func (a *app) handle(ctx context.Context, cfg *config.Config, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true

	case "list":
		if a.poll == nil {
			return false
		}
		for _, msg := range a.poll.Snapshot() {
			fmt.Printf("%s  %s  %s\n", msg.ID, msg.From, msg.Subject)
		}

	case "open":
		if len(fields) < 2 {
			fmt.Println("用法: open <消息ID>")
			return false
		}
		full, err := a.messages.Read(ctx, a.mailbox.Token, fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取邮件失败: %v\n", err)
			return false
		}
		fmt.Printf("来自: %s\n主题: %s\n\n%s\n", full.From, full.Subject, messageBody(full))
		if code, ok := otp.ExtractFromMessage(full); ok {
			fmt.Printf("\n验证码: %s\n", code)
		}

	case "new":
		a.discard(ctx)
		mailbox, err := a.mailboxes.Create(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "创建新邮箱失败: %v\n", err)
			return false
		}
		a.mailbox = mailbox
		if err := a.store.Save(mailbox); err != nil {
			fmt.Fprintf(os.Stderr, "警告: 保存状态失败: %v\n", err)
		}
		fmt.Printf("新邮箱地址: %s\n", mailbox.Address)
		a.startPolling(ctx, cfg)

	case "delete":
		a.discard(ctx)
		fmt.Println("邮箱已丢弃")
		return true

	default:
		fmt.Println("命令: list | open <消息ID> | new | delete | quit")
	}
	return false
}

// discard 停止轮询、尽力删除上游账户并清空本地状态。
func (a *app) discard(ctx context.Context) {
	a.stopPolling()

	// 上游删除是尽力而为的，失败也继续清理本地状态
	if err := a.mailboxes.DeleteAccount(ctx, a.mailbox.Token, a.mailbox.AccountID); err != nil {
		fmt.Fprintf(os.Stderr, "上游删除失败（忽略）: %v\n", err)
	}
	if err := a.store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "清理状态文件失败: %v\n", err)
	}
}

// messageBody 优先返回纯文本正文，没有时退回 HTML 剥离后的文本。
func messageBody(full *domain.MessageFull) string {
	if strings.TrimSpace(full.Text) != "" {
		return full.Text
	}
	return otp.StripHTML(full.HTML)
}
