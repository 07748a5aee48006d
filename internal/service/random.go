package service

import (
	"math/rand"
	"sync"
	"time"
)

// localPartAlphabet 是本地部分与密码的字符集：小写字母加数字。
// 原实现即为此字符集，随机源也沿用 math/rand（非加密强度，见 DESIGN.md）。
const localPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generator 是并发安全的随机字符串生成器。
type generator struct {
	mu     sync.Mutex
	random *rand.Rand
}

func newGenerator() *generator {
	return &generator{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// randomString 生成指定长度的随机小写字母数字串。
func (g *generator) randomString(length int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]byte, length)
	for i := range out {
		out[i] = localPartAlphabet[g.random.Intn(len(localPartAlphabet))]
	}
	return string(out)
}
