package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"nexus_chat_server/pkg/errorx"
)

// LocalStore 存到本地目录，由 gin 静态路由对外提供
type LocalStore struct {
	dir        string
	publicBase string
}

// NewLocalStore 创建本地存储
func NewLocalStore(dir, publicBase string) *LocalStore {
	return &LocalStore{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}
}

// Dir 存储根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// Store 实现 Store
func (s *LocalStore) Store(_ context.Context, scopeId, kind string, data []byte) (string, error) {
	png, err := Normalize(kind, data)
	if err != nil {
		return "", err
	}
	key := objectKey(scopeId, kind, png)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "创建存储目录失败")
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "保存文件失败")
	}
	return s.publicBase + "/" + key, nil
}
