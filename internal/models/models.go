package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Document 代表远端数据存储中的一条旅行记录（entry），每次修改都需要携带版本号。
type Document struct {
	// Key 是文档在集合内的唯一标识。
	Key string `bson:"key" json:"key"`

	// Owner 是文档所属用户。
	Owner string `bson:"owner" json:"owner"`

	// Version 是单调递增的版本号，用于乐观并发控制。
	// 写入时必须携带读取到的版本，版本不一致的写入会被存储拒绝。
	// 0 表示文档尚未创建。
	Version int64 `bson:"version" json:"version"`

	Description string `bson:"description,omitempty" json:"description,omitempty"`

	Data EntryData `bson:"data" json:"data"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EntryData 是文档的业务数据。除 media 以外的字段在删除媒体时会原样写回。
type EntryData struct {
	Title    string     `bson:"title,omitempty" json:"title,omitempty"`
	Location string     `bson:"location,omitempty" json:"location,omitempty"`
	Media    MediaField `bson:"media" json:"media"`

	// Extra 收集未声明的字段（tags、createdAt 等），写回时一并保存。
	Extra bson.M `bson:",inline" json:"-"`
}

// MediaState 描述 media 字段在存储中的形态。
type MediaState int

const (
	MediaMissing   MediaState = iota // 字段缺失或为 null
	MediaList                        // 合法数组
	MediaMalformed                   // 存在但不是数组
)

// MediaField 保存 media 字段的原始形态，索引构建器据此跳过不合法的文档。
type MediaField struct {
	Refs  []MediaRef
	State MediaState
	// Dropped 是数组中无法解码、已被丢弃的元素数量。
	Dropped int
}

// NewMedia 用给定的媒体列表构造一个合法的 media 字段。
func NewMedia(refs ...MediaRef) MediaField {
	if refs == nil {
		refs = []MediaRef{}
	}
	return MediaField{Refs: refs, State: MediaList}
}

// IsList 报告 media 字段是否为合法数组。
func (f MediaField) IsList() bool {
	return f.State == MediaList
}

func (f MediaField) MarshalBSONValue() (bsontype.Type, []byte, error) {
	refs := f.Refs
	if refs == nil {
		refs = []MediaRef{}
	}
	return bson.MarshalValue(refs)
}

// UnmarshalBSONValue 逐个解码数组元素，单个元素损坏只丢弃该元素而不是整个文档。
func (f *MediaField) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*f = MediaField{}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		f.State = MediaMissing
		return nil
	case bsontype.Array:
	default:
		f.State = MediaMalformed
		return nil
	}

	values, err := bson.Raw(data).Values()
	if err != nil {
		f.State = MediaMalformed
		return nil
	}
	f.State = MediaList
	f.Refs = make([]MediaRef, 0, len(values))
	for _, v := range values {
		var ref MediaRef
		if err := v.Unmarshal(&ref); err != nil {
			f.Dropped++
			continue
		}
		f.Refs = append(f.Refs, ref)
	}
	return nil
}

func (f MediaField) MarshalJSON() ([]byte, error) {
	if !f.IsList() {
		return []byte("null"), nil
	}
	refs := f.Refs
	if refs == nil {
		refs = []MediaRef{}
	}
	return json.Marshal(refs)
}

// UnmarshalJSON 与 UnmarshalBSONValue 行为一致，损坏的元素计入 Dropped。
func (f *MediaField) UnmarshalJSON(data []byte) error {
	*f = MediaField{}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case nil:
		return nil
	case []any:
	default:
		f.State = MediaMalformed
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	f.State = MediaList
	f.Refs = make([]MediaRef, 0, len(elems))
	for _, el := range elems {
		var ref MediaRef
		if err := json.Unmarshal(el, &ref); err != nil {
			f.Dropped++
			continue
		}
		f.Refs = append(f.Refs, ref)
	}
	return nil
}

// Color 是上传时采样得到的一个主色。
type Color struct {
	R uint8 `bson:"r" json:"r"`
	G uint8 `bson:"g" json:"g"`
	B uint8 `bson:"b" json:"b"`
}

func (c Color) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// MediaRef 描述一个已上传的资源，FullPath 是它在资源存储中的唯一路径。
type MediaRef struct {
	FullPath       string  `bson:"fullPath" json:"fullPath"`
	Type           string  `bson:"type" json:"type"`
	Width          float64 `bson:"width" json:"width"`
	Height         float64 `bson:"height" json:"height"`
	DominantColors []Color `bson:"colors,omitempty" json:"colors,omitempty"`
	OriginalName   string  `bson:"originalName,omitempty" json:"originalName,omitempty"`
	DownloadURL    string  `bson:"downloadUrl,omitempty" json:"downloadUrl,omitempty"`
}

// IsVideo 根据 MIME 类型判断是否为视频。
func (m MediaRef) IsVideo() bool {
	return len(m.Type) >= 5 && m.Type[:5] == "video"
}

// DefaultPlaceholderColor 是没有主色信息时使用的中性背景色。
const DefaultPlaceholderColor = "#f0f0f0"

// MediaItem 是索引构建器产出的只读视图，每次重建索引都会重新生成。
type MediaItem struct {
	MediaRef

	EntryKey         string  `json:"entryKey"`
	EntryTitle       string  `json:"entryTitle,omitempty"`
	Location         string  `json:"location,omitempty"`
	Identity         string  `json:"identity"`
	Ratio            float64 `json:"ratio"`
	PlaceholderColor string  `json:"placeholderColor"`
}

// IdentityOf 返回媒体的复合标识，重新加载后保持不变。
func IdentityOf(entryKey, fullPath string) string {
	return entryKey + "-" + fullPath
}

// DeletionOutcome 是单个文档（组）的删除结果。
type DeletionOutcome struct {
	EntryKey      string `json:"entryKey"`
	Succeeded     bool   `json:"succeeded"`
	ItemsRemoved  int    `json:"itemsRemoved"`
	GroupSize     int    `json:"groupSize"`
	AssetFailures int    `json:"assetFailures,omitempty"`
	Attempts      int    `json:"attempts"`
	Error         string `json:"error,omitempty"`
	Err           error  `json:"-"`
}

// BatchOutcome 汇总一次批量删除中所有组的结果。
type BatchOutcome struct {
	Processed     int               `json:"processed"`
	Failed        int               `json:"failed"`
	Total         int               `json:"total"`
	AssetFailures int               `json:"assetFailures,omitempty"`
	Groups        []DeletionOutcome `json:"groups,omitempty"`
}

// Placement 是一个媒体在网格中的计算位置与尺寸。
type Placement struct {
	Item   MediaItem `json:"item"`
	Column int       `json:"column"`
	X      int       `json:"x"`
	Y      float64   `json:"y"`
	Width  int       `json:"width"`
	Height float64   `json:"height"`
}
