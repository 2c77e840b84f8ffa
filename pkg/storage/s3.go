package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DeleteObjects 单次请求最多接受 1000 个 key。
const maxDeleteBatch = 1000

type S3Store struct {
	client *s3.Client
	bucket string
}

var _ AssetStore = (*S3Store)(nil)

// NewS3Store 创建 S3 资源存储；endpoint 非空时使用 path-style 访问（兼容 MinIO）。
func NewS3Store(ctx context.Context, region, bucket, endpoint string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: bucket}, nil
}

// DeleteAsset 先 HEAD 一次，S3 的 DeleteObject 对不存在的 key 也会返回成功。
func (s *S3Store) DeleteAsset(ctx context.Context, collection, fullPath string) error {
	key := objectKey(collection, fullPath)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return &PathError{FullPath: fullPath, Err: ErrAssetNotFound}
		}
		return &PathError{FullPath: fullPath, Err: err}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &PathError{FullPath: fullPath, Err: err}
	}
	return nil
}

func (s *S3Store) DeleteAssets(ctx context.Context, collection string, fullPaths []string) error {
	var errs []error
	for start := 0; start < len(fullPaths); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(fullPaths))
		batch := fullPaths[start:end]

		byKey := make(map[string]string, len(batch))
		objects := make([]types.ObjectIdentifier, 0, len(batch))
		for _, p := range batch {
			key := objectKey(collection, p)
			byKey[key] = p
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			// 整批请求失败，本批每个路径都记为失败
			for _, p := range batch {
				errs = append(errs, &PathError{FullPath: p, Err: err})
			}
			continue
		}
		for _, e := range out.Errors {
			key := aws.ToString(e.Key)
			p, ok := byKey[key]
			if !ok {
				p = key
			}
			cause := fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
			if aws.ToString(e.Code) == "NoSuchKey" {
				cause = ErrAssetNotFound
			}
			errs = append(errs, &PathError{FullPath: p, Err: cause})
		}
	}
	if len(errs) > 0 {
		slog.Debug("部分资源删除失败", "bucket", s.bucket, "failed", len(errs))
	}
	return errors.Join(errs...)
}

func (s *S3Store) ListAssets(ctx context.Context, collection string) ([]string, error) {
	var paths []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(collection + "/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("列出资源失败: %w", err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, "/"+aws.ToString(obj.Key))
		}
	}
	return paths, nil
}

func (s *S3Store) OpenAsset(ctx context.Context, collection, fullPath string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(collection, fullPath)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", fullPath, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("读取资源 %s 失败: %w", fullPath, err)
	}
	return out.Body, nil
}
