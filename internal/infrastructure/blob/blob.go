// Package blob 头像、横幅、社区图标等图片资源的存储
// 上传的图片统一缩放并转为 PNG，按内容哈希命名，同一张图重复上传得到同一地址
package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
)

// 资源类型
const (
	KindAvatar = "avatar"
	KindBanner = "banner"
	KindIcon   = "icon"
)

// Store 存储图片并返回公开访问地址
type Store interface {
	Store(ctx context.Context, scopeId, kind string, data []byte) (string, error)
}

// bounds 各类型缩放后的最大宽高
func bounds(kind string) (int, int, bool) {
	switch kind {
	case KindAvatar, KindIcon:
		return 512, 512, true
	case KindBanner:
		return 1500, 500, true
	}
	return 0, 0, false
}

// Normalize 校验并缩放图片，输出 PNG
func Normalize(kind string, data []byte) ([]byte, error) {
	w, h, ok := bounds(kind)
	if !ok {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的资源类型 %s", kind)
	}
	if len(data) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "文件为空")
	}
	if len(data) > constants.BLOB_MAX_SIZE {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "文件不能超过 %dMB", constants.BLOB_MAX_SIZE>>20)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeInvalidParam, "不支持的图片格式")
	}
	img = imaging.Fit(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "图片编码失败")
	}
	return buf.Bytes(), nil
}

// objectKey 形如 avatars/<scope>/<hash>.png
func objectKey(scopeId, kind string, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%ss/%s/%s.png", kind, scopeId, hex.EncodeToString(sum[:12]))
}

// New 按配置创建存储
func New(ctx context.Context, conf config.BlobConfig) (Store, error) {
	switch conf.Driver {
	case "", "local":
		zap.L().Info("使用本地资源存储", zap.String("path", conf.LocalPath))
		return NewLocalStore(conf.LocalPath, conf.PublicBaseURL), nil
	case "s3":
		zap.L().Info("使用 S3 资源存储", zap.String("bucket", conf.S3Bucket))
		return NewS3Store(ctx, conf)
	}
	return nil, fmt.Errorf("unknown blob driver %q", conf.Driver)
}
