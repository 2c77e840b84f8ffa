// Package imageprobe 从资源内容中读取尺寸、平均色和感知哈希，
// 用来补全缺失的媒体元数据和查找重复图片。
package imageprobe

import (
	"Gallery_Manager/internal/models"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"

	// 匿名导入 image解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/ajdnik/imghash"
	"github.com/disintegration/imaging"
)

// Info 是一次探测的结果。
type Info struct {
	Width  int
	Height int
	Format string
	Color  models.Color
	// PHash 是感知哈希的字符串形式，只用于相等比较。
	PHash  string
	SHA256 string
}

// Probe 读取并解码整个资源。
func Probe(r io.Reader) (*Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取资源内容失败: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("无法解码图片: %w", err)
	}

	b := img.Bounds()
	return &Info{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Color:  AverageColor(img),
		PHash:  PerceptualHash(img),
		SHA256: sha256Hex(data),
	}, nil
}

// AverageColor 把图片缩到 1x1，得到的像素即平均色。
func AverageColor(img image.Image) models.Color {
	px := imaging.Resize(img, 1, 1, imaging.Box)
	c := px.NRGBAAt(0, 0)
	return models.Color{R: c.R, G: c.G, B: c.B}
}

// PerceptualHash 计算图片的感知哈希(pHash)值。
func PerceptualHash(img image.Image) string {
	phasher := imghash.NewPHash()
	return fmt.Sprintf("%v", phasher.Calculate(img))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
