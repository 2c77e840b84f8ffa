// Package testutil 提供测试用的文档与媒体构造函数。
package testutil

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/index"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// Ref 构造一个指定尺寸的图片引用。
func Ref(fullPath string, width, height float64) models.MediaRef {
	return models.MediaRef{FullPath: fullPath, Type: "image/jpeg", Width: width, Height: height}
}

// Doc 构造一个 media 为合法数组的文档，每个路径对应一张 400x300 的图片。
func Doc(key string, paths ...string) models.Document {
	refs := make([]models.MediaRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, Ref(p, 400, 300))
	}
	return models.Document{
		Key:   key,
		Owner: "tester",
		Data:  models.EntryData{Title: key, Media: models.NewMedia(refs...)},
	}
}

// Items 把文档展开为媒体列表，等价于一次索引构建。
func Items(docs ...models.Document) []models.MediaItem {
	return index.Build(docs)
}

// ItemsWithRatios 构造只带宽高比的媒体，用于布局测试。
func ItemsWithRatios(ratios ...float64) []models.MediaItem {
	items := make([]models.MediaItem, len(ratios))
	for i, r := range ratios {
		path := fmt.Sprintf("/travel_media/img-%d.jpg", i)
		items[i] = models.MediaItem{
			MediaRef: models.MediaRef{FullPath: path},
			EntryKey: "entry",
			Identity: models.IdentityOf("entry", path),
			Ratio:    r,
		}
	}
	return items
}

// PNG 编码一张纯色图片。
func PNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
