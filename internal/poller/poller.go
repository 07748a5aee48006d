package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tempmail/relay/internal/domain"
)

// Ticker 抽象 time.Ticker，测试时注入手动推进的假时钟。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock 创建定时器。
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

type realTicker struct{ t *time.Ticker }

func (t *realTicker) C() <-chan time.Time { return t.t.C }
func (t *realTicker) Stop()               { t.t.Stop() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

// FetchFunc 执行一次收件箱查询。
type FetchFunc func(ctx context.Context) ([]domain.MessageSummary, error)

// Poller 定时驱动收件箱查询的轮询器。
//
// 单 goroutine 顺序执行：一次 tick 对应至多一次查询，查询进行中
// 到达的 tick 被跳过，天然避免并发轮询。Stop 之后迟到的查询结果
// 会被丢弃而不是应用。
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	clock    Clock
	log      *zap.Logger

	onUpdate func([]domain.MessageSummary)
	onNew    func(domain.MessageSummary)
	onError  func(error)

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	seen     map[string]struct{}
	snapshot []domain.MessageSummary
}

// Option 配置轮询器的可选项。
type Option func(*Poller)

// WithClock 注入时钟（测试用）。
func WithClock(clock Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) { p.log = log }
}

// OnUpdate 注册每次成功轮询后的回调，携带完整替换后的列表。
func OnUpdate(fn func([]domain.MessageSummary)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// OnNew 注册新邮件回调，按首次出现的顺序逐封触发。
func OnNew(fn func(domain.MessageSummary)) Option {
	return func(p *Poller) { p.onNew = fn }
}

// OnError 注册单次轮询失败的回调。失败不会停止轮询，
// 下一次 tick 就是自然重试。
func OnError(fn func(error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// New 创建轮询器。
func New(fetch FetchFunc, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: interval,
		clock:    realClock{},
		log:      zap.NewNop(),
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start 启动轮询循环：先立即查询一次，之后按间隔触发。
// 重复调用是幂等的。
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop 停止轮询并等待循环退出。停止后不再发起任何提供商调用。
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Reset 清空已见集合与快照，在丢弃邮箱后调用。
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = make(map[string]struct{})
	p.snapshot = nil
}

// Snapshot 返回最近一次成功轮询的列表副本。
func (p *Poller) Snapshot() []domain.MessageSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessageSummary, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	summaries, err := p.fetch(ctx)

	// Stop 之后迟到的结果直接丢弃
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		p.log.Warn("poll tick failed", zap.Error(err))
		if p.onError != nil {
			p.onError(err)
		}
		return
	}

	var fresh []domain.MessageSummary
	p.mu.Lock()
	for _, msg := range summaries {
		if _, ok := p.seen[msg.ID]; !ok {
			p.seen[msg.ID] = struct{}{}
			fresh = append(fresh, msg)
		}
	}
	// 渲染列表由最新的服务端结果整体替换
	p.snapshot = summaries
	p.mu.Unlock()

	if p.onNew != nil {
		for _, msg := range fresh {
			p.onNew(msg)
		}
	}
	if p.onUpdate != nil {
		p.onUpdate(summaries)
	}
}
