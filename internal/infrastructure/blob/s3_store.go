package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/pkg/errorx"
)

// S3Store 存到 S3 或兼容 S3 的对象存储（R2、MinIO）
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store 创建 S3 存储
// 配置了 AccessKey 时使用静态凭证，否则走默认凭证链
func NewS3Store(ctx context.Context, conf config.BlobConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(conf.S3Region)}
	if conf.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.S3AccessKey, conf.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if conf.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	publicURL := strings.TrimRight(conf.S3PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", conf.S3Bucket)
	}
	return &S3Store{client: client, bucket: conf.S3Bucket, publicURL: publicURL}, nil
}

// Store 实现 Store
func (s *S3Store) Store(ctx context.Context, scopeId, kind string, data []byte) (string, error) {
	png, err := Normalize(kind, data)
	if err != nil {
		return "", err
	}
	key := objectKey(scopeId, kind, png)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
		Metadata:    map[string]string{"scope_id": scopeId, "kind": kind},
	})
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "上传文件失败")
	}
	return s.publicURL + "/" + key, nil
}
