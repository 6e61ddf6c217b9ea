// Package condition 解析使用者填寫的健康狀況字串。
package condition

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 已知的健康狀況標籤
const (
	Diabetes       = "糖尿病"
	Obesity        = "肥胖"
	Hypertension   = "高血压"
	Hyperlipidemia = "高血脂"
)

// noneValues 視為沒有健康狀況的值（比對前已轉小寫）
var noneValues = map[string]struct{}{
	"":     {},
	"none": {},
	"无":    {},
	"無":    {},
}

// aliases 別名轉為標準標籤（比對前已轉小寫）
var aliases = map[string]string{
	"diabetes":       Diabetes,
	"obesity":        Obesity,
	"hypertension":   Hypertension,
	"hyperlipidemia": Hyperlipidemia,
	"高血壓":            Hypertension,
}

// separators NFKC 之後仍需處理的分隔符號，全形逗號與分號在 NFKC 後已是半形
var separators = strings.NewReplacer("、", ",", ";", ",", "+", ",")

// Parse 將健康狀況字串切成去重且保持首次出現順序的標籤
func Parse(raw string) []string {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if _, ok := noneValues[strings.ToLower(s)]; ok {
		return nil
	}

	s = separators.Replace(s)

	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		tag := canonical(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Join 以逗號合併標籤，Parse(Join(tags)) 會得到相同的標籤
func Join(tags []string) string {
	return strings.Join(tags, ",")
}

// Has 檢查標籤是否存在
func Has(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func canonical(tag string) string {
	if tag == "" {
		return ""
	}
	lower := strings.ToLower(tag)
	if _, ok := noneValues[lower]; ok {
		return ""
	}
	if c, ok := aliases[lower]; ok {
		return c
	}
	return tag
}
