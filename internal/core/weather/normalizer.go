// Package weather 將天氣供應商的標籤正規化為固定的天氣類別，並提供查詢客戶端與快取。
package weather

import "strings"

// Condition 天氣類別
type Condition int

const (
	Unknown Condition = iota
	Clear
	Clouds
	Rain
	Drizzle
	Thunderstorm
	Snow
	Mist
	Fog
	Haze
	Windy
)

var conditionNames = map[Condition]string{
	Clear:        "Clear",
	Clouds:       "Clouds",
	Rain:         "Rain",
	Drizzle:      "Drizzle",
	Thunderstorm: "Thunderstorm",
	Snow:         "Snow",
	Mist:         "Mist",
	Fog:          "Fog",
	Haze:         "Haze",
	Windy:        "Windy",
}

// synonyms 食物庫中使用的天氣標籤
var synonyms = map[Condition][]string{
	Clear:        {"晴天", "晴"},
	Clouds:       {"阴天", "多云", "阴"},
	Rain:         {"雨天", "雨", "阵雨"},
	Drizzle:      {"小雨", "毛毛雨"},
	Thunderstorm: {"雷雨", "雷暴"},
	Snow:         {"雪", "雪天", "寒冷"},
	Mist:         {"雾", "雾天"},
	Fog:          {"雾", "雾天"},
	Haze:         {"雾霾", "霾"},
	Windy:        {"风", "大风"},
}

// labels 供應商標籤到類別，比對時不分大小寫
var labels = map[string]Condition{
	"clear":        Clear,
	"clouds":       Clouds,
	"rain":         Rain,
	"drizzle":      Drizzle,
	"thunderstorm": Thunderstorm,
	"snow":         Snow,
	"mist":         Mist,
	"fog":          Fog,
	"haze":         Haze,
	"windy":        Windy,
	"wind":         Windy,
	"风":            Windy,
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Synonyms 取得類別的同義詞副本
func (c Condition) Synonyms() []string {
	return append([]string(nil), synonyms[c]...)
}

// Normalized 正規化結果
type Normalized struct {
	Condition Condition
	Label     string
	Synonyms  []string
}

// Lookup 以名稱取得類別
func Lookup(label string) Condition {
	return labels[strings.ToLower(strings.TrimSpace(label))]
}

// Normalize 正規化供應商標籤。空標籤回傳 false 表示沒有天氣資料；
// 未知標籤的同義詞只有標籤本身。
func Normalize(raw string) (Normalized, bool) {
	label := strings.TrimSpace(raw)
	if label == "" {
		return Normalized{}, false
	}
	c := Lookup(label)
	if c == Unknown {
		return Normalized{Condition: Unknown, Label: label, Synonyms: []string{label}}, true
	}
	return Normalized{Condition: c, Label: label, Synonyms: c.Synonyms()}, true
}

// Default 供應商不可用時使用的天氣
func Default(c Condition) Normalized {
	if c == Unknown {
		c = Clear
	}
	return Normalized{Condition: c, Label: c.String(), Synonyms: c.Synonyms()}
}
