package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tempmail/relay/internal/domain"
)

// ErrNoMailbox 状态文件不存在，即本地没有保存过邮箱。
var ErrNoMailbox = errors.New("no mailbox saved")

// Store 把邮箱凭证保存为本地 JSON 文件。
//
// 这是浏览器 localStorage 的对应物：address/password/token/accountId
// 明文落盘，"忘记邮箱" 时整个文件删除。整条记录作为一个单元替换，
// 不做字段级修改，避免出现地址与令牌不配对的中间态。
type Store struct {
	path string
}

// NewStore 创建状态存储，path 为状态文件位置。
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath 返回默认状态文件位置（用户配置目录下）。
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tempmail-state.json"
	}
	return filepath.Join(dir, "tempmail-relay", "state.json")
}

// Load 读取保存的邮箱，文件不存在时返回 ErrNoMailbox。
func (s *Store) Load() (*domain.Mailbox, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoMailbox
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal(data, &mailbox); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if err := mailbox.Validate(); err != nil {
		return nil, fmt.Errorf("invalid saved mailbox: %w", err)
	}
	return &mailbox, nil
}

// Save 原子地写入整条邮箱记录（临时文件 + rename）。
func (s *Store) Save(mailbox *domain.Mailbox) error {
	if err := mailbox.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(mailbox, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear 删除状态文件，文件本就不存在时视为成功。
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
