package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/relay/internal/config"
	"tempmail/relay/internal/provider"
)

// fakeUpstream 模拟 mail.tm 形状的上游提供商。
type fakeUpstream struct {
	mu       sync.Mutex
	accounts func(n int) (int, string) // 第 n 次创建调用的响应（从 0 开始）
	token    func(n int) (int, string)
	domains  func() (int, string)

	createCalls  int
	tokenCalls   int
	domainCalls  int
	seenAddrs    []string
	seenPasses   []string
	lastTokenReq map[string]string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		domains: func() (int, string) {
			return 200, `{"hydra:member":[{"domain":"x.test"}]}`
		},
		accounts: func(n int) (int, string) {
			return 201, `{"id":"acc-1"}`
		},
		token: func(n int) (int, string) {
			return 200, `{"token":"tok-1","account":{"id":"acc-1"}}`
		},
	}
}

// counts 在锁内读出调用计数，避免与处理器 goroutine 竞争。
func (f *fakeUpstream) counts() (domains, creates, tokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domainCalls, f.createCalls, f.tokenCalls
}

func (f *fakeUpstream) addresses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenAddrs...)
}

func (f *fakeUpstream) passwords() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenPasses...)
}

func (f *fakeUpstream) tokenRequest() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTokenReq
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/domains", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.domainCalls++
		status, body := f.domains()
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(raw, &req)

		f.mu.Lock()
		n := f.createCalls
		f.createCalls++
		f.seenAddrs = append(f.seenAddrs, req["address"])
		f.seenPasses = append(f.seenPasses, req["password"])
		status, body := f.accounts(n)
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(raw, &req)

		f.mu.Lock()
		n := f.tokenCalls
		f.tokenCalls++
		f.lastTokenReq = req
		status, body := f.token(n)
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	return mux
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			BaseURL:         baseURL,
			RequestTimeout:  5 * time.Second,
			FallbackDomains: []string{"fallback.test"},
			CatalogTTL:      time.Minute,
		},
		Creation: config.CreationConfig{
			MaxAttempts:     5,
			LocalPartLength: 12,
			PasswordLength:  16,
		},
	}
}

func newTestService(t *testing.T, upstream *fakeUpstream, catalog DomainCache) (*MailboxService, *config.Config) {
	t.Helper()
	server := httptest.NewServer(upstream.handler())
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.RequestTimeout)
	return NewMailboxService(client, cfg, catalog, nil), cfg
}

// fakeCatalog 进程内域名目录缓存的测试替身。
type fakeCatalog struct {
	mu      sync.Mutex
	domains []string
}

func (f *fakeCatalog) GetDomains() ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domains, len(f.domains) > 0
}

func (f *fakeCatalog) SetDomains(domains []string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains = domains
}

func TestMailboxServiceCreate(t *testing.T) {
	t.Run("首次尝试创建成功", func(t *testing.T) {
		upstream := newFakeUpstream()
		svc, _ := newTestService(t, upstream, nil)

		mailbox, err := svc.Create(context.Background())

		require.NoError(t, err)
		require.NotNil(t, mailbox)
		assert.NoError(t, mailbox.Validate())
		assert.Equal(t, "x.test", mailbox.Domain)
		assert.Len(t, mailbox.LocalPart, 12)
		assert.Equal(t, mailbox.LocalPart+"@x.test", mailbox.Address)
		assert.Len(t, mailbox.Password, 16)
		assert.Equal(t, "tok-1", mailbox.Token)
		assert.Equal(t, "acc-1", mailbox.AccountID)
		assert.False(t, mailbox.CreatedAt.IsZero())

		// 令牌换取使用的正是创建时的凭证
		tokenReq := upstream.tokenRequest()
		assert.Equal(t, mailbox.Address, tokenReq["address"])
		assert.Equal(t, mailbox.Password, tokenReq["password"])
		_, creates, tokens := upstream.counts()
		assert.Equal(t, 1, creates)
		assert.Equal(t, 1, tokens)
	})

	t.Run("地址冲突后换新的随机本地部分重试", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.accounts = func(n int) (int, string) {
			if n < 2 {
				return 422, `{"violations":[{"message":"address: taken"}]}`
			}
			return 201, `{"id":"acc-1"}`
		}
		svc, _ := newTestService(t, upstream, nil)

		mailbox, err := svc.Create(context.Background())

		require.NoError(t, err)
		_, creates, tokens := upstream.counts()
		assert.Equal(t, 3, creates)
		assert.Equal(t, 1, tokens)

		// 三次尝试的地址和密码都是新生成的
		addrs := upstream.addresses()
		passes := upstream.passwords()
		assert.NotEqual(t, addrs[0], addrs[1])
		assert.NotEqual(t, addrs[1], addrs[2])
		assert.NotEqual(t, passes[0], passes[1])
		assert.Equal(t, mailbox.Address, addrs[2])
	})

	t.Run("409和400同样视为冲突重试", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.accounts = func(n int) (int, string) {
			switch n {
			case 0:
				return 409, `{}`
			case 1:
				return 400, `{}`
			default:
				return 201, `{"id":"acc-1"}`
			}
		}
		svc, _ := newTestService(t, upstream, nil)

		_, err := svc.Create(context.Background())
		require.NoError(t, err)
		_, creates, _ := upstream.counts()
		assert.Equal(t, 3, creates)
	})

	t.Run("所有尝试耗尽后返回exhausted错误", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.accounts = func(n int) (int, string) {
			return 422, `{"violations":[{"message":"address: taken"}]}`
		}
		svc, cfg := newTestService(t, upstream, nil)

		mailbox, err := svc.Create(context.Background())

		assert.Nil(t, mailbox)
		var creationErr *CreationError
		require.ErrorAs(t, err, &creationErr)
		assert.Equal(t, StageExhausted, creationErr.Stage)
		assert.Equal(t, cfg.Creation.MaxAttempts, creationErr.Attempt)
		_, creates, tokens := upstream.counts()
		assert.Equal(t, cfg.Creation.MaxAttempts, creates)
		// 从未成功创建账户，令牌端点不应被调用
		assert.Zero(t, tokens)
	})

	t.Run("创建阶段5xx立即终止", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.accounts = func(n int) (int, string) {
			return 500, `{"error":"boom"}`
		}
		svc, _ := newTestService(t, upstream, nil)

		_, err := svc.Create(context.Background())

		var creationErr *CreationError
		require.ErrorAs(t, err, &creationErr)
		assert.Equal(t, StageCreate, creationErr.Stage)
		assert.Equal(t, 500, creationErr.Status)
		_, creates, tokens := upstream.counts()
		assert.Equal(t, 1, creates)
		assert.Zero(t, tokens)
	})

	t.Run("令牌阶段4xx立即终止", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.token = func(n int) (int, string) {
			return 401, `{"message":"invalid credentials"}`
		}
		svc, _ := newTestService(t, upstream, nil)

		_, err := svc.Create(context.Background())

		var creationErr *CreationError
		require.ErrorAs(t, err, &creationErr)
		assert.Equal(t, StageToken, creationErr.Stage)
		assert.Equal(t, 401, creationErr.Status)
		_, _, tokens := upstream.counts()
		assert.Equal(t, 1, tokens)
	})

	t.Run("令牌阶段5xx换一次重来", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.token = func(n int) (int, string) {
			if n == 0 {
				return 503, `{}`
			}
			return 200, `{"token":"tok-2","account":{"id":"acc-2"}}`
		}
		svc, _ := newTestService(t, upstream, nil)

		mailbox, err := svc.Create(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "tok-2", mailbox.Token)
		_, creates, tokens := upstream.counts()
		assert.Equal(t, 2, creates)
		assert.Equal(t, 2, tokens)
	})
}

func TestMailboxServiceDomains(t *testing.T) {
	t.Run("目录可用时使用提供商域名", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.domains = func() (int, string) {
			return 200, `{"hydra:member":[{"domain":"a.test"},{"domain":"b.test"}]}`
		}
		svc, _ := newTestService(t, upstream, nil)

		domains := svc.Domains(context.Background())
		assert.Equal(t, []string{"a.test", "b.test"}, domains)
	})

	t.Run("目录失败时退回兜底列表", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.domains = func() (int, string) {
			return 500, `{}`
		}
		svc, _ := newTestService(t, upstream, nil)

		domains := svc.Domains(context.Background())
		assert.Equal(t, []string{"fallback.test"}, domains)
	})

	t.Run("目录为空时退回兜底列表", func(t *testing.T) {
		upstream := newFakeUpstream()
		upstream.domains = func() (int, string) {
			return 200, `{"hydra:member":[]}`
		}
		svc, _ := newTestService(t, upstream, nil)

		domains := svc.Domains(context.Background())
		assert.Equal(t, []string{"fallback.test"}, domains)
	})

	t.Run("目录结果写入缓存且后续命中", func(t *testing.T) {
		upstream := newFakeUpstream()
		catalog := &fakeCatalog{}
		svc, _ := newTestService(t, upstream, catalog)

		first := svc.Domains(context.Background())
		second := svc.Domains(context.Background())

		assert.Equal(t, first, second)
		domainCalls, _, _ := upstream.counts()
		assert.Equal(t, 1, domainCalls)
	})
}

func TestMailboxServiceDeleteAccount(t *testing.T) {
	newDeleteServer := func(t *testing.T, status int) (*MailboxService, *atomic.Int32) {
		t.Helper()
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(status)
		}))
		t.Cleanup(server.Close)

		cfg := testConfig(server.URL)
		client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.RequestTimeout)
		return NewMailboxService(client, cfg, nil, nil), &calls
	}

	t.Run("上游204视为删除成功", func(t *testing.T) {
		svc, calls := newDeleteServer(t, http.StatusNoContent)
		err := svc.DeleteAccount(context.Background(), "tok-1", "acc-1")
		assert.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("上游失败返回带状态的错误", func(t *testing.T) {
		svc, _ := newDeleteServer(t, http.StatusUnauthorized)
		err := svc.DeleteAccount(context.Background(), "tok-1", "acc-1")

		var upstreamErr *UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, 401, upstreamErr.Status)
		assert.True(t, upstreamErr.AuthFailure)
	})

	t.Run("缺失令牌或ID不发起网络调用", func(t *testing.T) {
		svc, calls := newDeleteServer(t, http.StatusNoContent)

		assert.ErrorIs(t, svc.DeleteAccount(context.Background(), "", "acc-1"), ErrMissingToken)
		assert.ErrorIs(t, svc.DeleteAccount(context.Background(), "tok-1", ""), ErrMissingID)
		assert.Zero(t, calls.Load())
	})
}
