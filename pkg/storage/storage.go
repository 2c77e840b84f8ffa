package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrAssetNotFound 表示资源已经不存在，删除流程把它视为"已删除"。
var ErrAssetNotFound = errors.New("asset not found")

// AssetStore 定义了二进制资源存储的操作，资源以 fullPath 为唯一标识。
type AssetStore interface {
	DeleteAsset(ctx context.Context, collection, fullPath string) error
	// DeleteAssets 尽力删除全部路径，失败的路径以 errors.Join 的形式返回，
	// 每一项都是 *PathError。
	DeleteAssets(ctx context.Context, collection string, fullPaths []string) error
	// ListAssets 返回集合内全部资源的 fullPath。
	ListAssets(ctx context.Context, collection string) ([]string, error)
	// OpenAsset 打开资源内容，调用方负责关闭。资源不存在时返回 ErrAssetNotFound。
	OpenAsset(ctx context.Context, collection, fullPath string) (io.ReadCloser, error)
}

// PathError 记录单个路径的删除失败。
type PathError struct {
	FullPath string
	Err      error
}

func (e *PathError) Error() string {
	return e.FullPath + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// PathErrors 把 DeleteAssets 返回的合并错误拆回逐条的 *PathError。
func PathErrors(err error) []*PathError {
	if err == nil {
		return nil
	}
	var out []*PathError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, PathErrors(e)...)
		}
		return out
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return []*PathError{pe}
	}
	return []*PathError{{Err: err}}
}

// NormalizePath 把 fullPath 规范为 "/<collection>/<name>" 的形式。
// 上传端写入的 fullPath 通常已经带有集合前缀。
func NormalizePath(collection, fullPath string) string {
	return "/" + objectKey(collection, fullPath)
}

func objectKey(collection, fullPath string) string {
	key := strings.TrimPrefix(fullPath, "/")
	if collection != "" && !strings.HasPrefix(key, collection+"/") {
		key = collection + "/" + key
	}
	return key
}
