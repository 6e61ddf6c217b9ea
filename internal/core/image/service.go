// Package image 提供食物圖片：熱門食物的預設圖片與 SVG 佔位縮圖。
package image

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"html"
	"strconv"
	"strings"
)

const (
	// placeholderPrefix 佔位圖路徑，版本號用來讓瀏覽器重新抓取
	placeholderPrefix  = "/food_image/"
	placeholderVersion = "v=2"

	// CacheControl 佔位圖的快取標頭
	CacheControl = "public, max-age=3600, must-revalidate"
	// ContentType SVG 的 MIME 類型
	ContentType = "image/svg+xml"

	// NotFoundTitle 找不到食物時的卡片標題
	NotFoundTitle = "未找到"

	maxTitleRunes    = 12
	maxSubtitleRunes = 10
)

// Presets 熱門食物的高解析度圖片
var Presets = map[string]string{
	"无糖燕麦粥":    "https://images.unsplash.com/photo-1517673132405-a56a62b18caf?auto=format&fit=crop&w=800&q=80",
	"全麦吐司":     "https://images.unsplash.com/photo-1598373182133-52452f7691f3?auto=format&fit=crop&w=800&q=80",
	"水煮鸡蛋":     "https://images.unsplash.com/photo-1482049016688-2d3e1b311543?auto=format&fit=crop&w=800&q=80",
	"清炒西兰花":    "https://images.unsplash.com/photo-1583061686733-4f100140c944?auto=format&fit=crop&w=800&q=80",
	"香煎鸡胸肉":    "https://images.unsplash.com/photo-1632778149955-e80f8ceca2e8?auto=format&fit=crop&w=800&q=80",
	"清蒸鱼":      "https://images.unsplash.com/photo-1519708227418-c8fd9a32b7a2?auto=format&fit=crop&w=800&q=80",
	"凉拌黄瓜":     "https://images.unsplash.com/photo-1606850246029-dd00d3ade945?auto=format&fit=crop&w=800&q=80",
	"番茄炒蛋（少油）": "https://images.unsplash.com/photo-1613769049987-b31b641325b1?auto=format&fit=crop&w=800&q=80",
	"玉米":       "https://images.unsplash.com/photo-1551754655-cd27e38d2076?auto=format&fit=crop&w=800&q=80",
	"杂粮饭":      "https://images.unsplash.com/photo-1596560548464-f010549b8416?auto=format&fit=crop&w=800&q=80",
	"虾仁豆腐":     "https://images.unsplash.com/photo-1559314809-0d155014e29e?auto=format&fit=crop&w=800&q=80",
	"紫菜蛋花汤":    "https://images.unsplash.com/photo-1547592166-23acbe54099c?auto=format&fit=crop&w=800&q=80",
}

// PresetNames 有預設圖片的食物名稱
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}

// PlaceholderURL 食物的佔位圖路徑
func PlaceholderURL(id int64) string {
	return placeholderPrefix + strconv.FormatInt(id, 10) + "?" + placeholderVersion
}

// NeedsPlaceholder 圖片為空，或是舊版本的佔位圖路徑
func NeedsPlaceholder(url string) bool {
	if url == "" {
		return true
	}
	if strings.HasPrefix(url, "http") {
		return false
	}
	return strings.HasPrefix(url, placeholderPrefix) && !strings.Contains(url, placeholderVersion)
}

// Subtitle 縮圖副標題，例如「主食 · 早餐」
func Subtitle(category, mealTime string) string {
	return category + " · " + mealTime
}

// Thumb 產生 640x360 的漸層 SVG 縮圖，顏色由標題與副標題雜湊決定
func Thumb(title, subtitle string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "食物"
	}
	title = truncate(strings.ReplaceAll(title, "\n", " "), maxTitleRunes)
	subtitle = truncate(strings.ReplaceAll(strings.TrimSpace(subtitle), "\n", " "), maxSubtitleRunes)

	sum := md5.Sum([]byte(title + "|" + subtitle))
	hue1 := binary.BigEndian.Uint32(sum[:4]) % 360
	hue2 := (hue1 + 46) % 360

	return fmt.Sprintf(svgTemplate,
		fmt.Sprintf("hsl(%d 82%% 56%%)", hue1),
		fmt.Sprintf("hsl(%d 82%% 56%%)", hue2),
		html.EscapeString(title),
		html.EscapeString(subtitle),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="640" height="360" viewBox="0 0 640 360">
  <defs>
    <linearGradient id="g" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0" stop-color="%s"/>
      <stop offset="1" stop-color="%s"/>
    </linearGradient>
  </defs>
  <rect width="640" height="360" rx="28" fill="url(#g)"/>
  <rect x="24" y="24" width="592" height="312" rx="22" fill="rgba(255,255,255,0.14)" stroke="rgba(255,255,255,0.22)"/>
  <text x="48" y="186" fill="rgba(255,255,255,0.96)" font-size="44" font-weight="800" font-family="Noto Sans SC, system-ui, -apple-system, Segoe UI, Arial">%s</text>
  <text x="48" y="236" fill="rgba(255,255,255,0.92)" font-size="26" font-weight="700" font-family="Noto Sans SC, system-ui, -apple-system, Segoe UI, Arial">%s</text>
</svg>`
