package i18n

import (
	"fmt"
	"strings"

	"github.com/tastemap/internal/constants"

	"github.com/gin-gonic/gin"
)

// DefaultLocale 默认语言
const DefaultLocale = constants.LocaleZhCN

var catalogs = map[string]map[string]string{
	constants.LocaleZhCN: zhCN,
	constants.LocaleEnUS: enUS,
}

// T 翻译 key，找不到时回落到默认语言，再找不到返回 key 本身
func T(locale, key string) string {
	if msg, ok := catalogs[NormalizeLocale(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalogs[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// NormalizeLocale 归一化语言标识
func NormalizeLocale(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "":
		return DefaultLocale
	case strings.HasPrefix(value, "en"):
		return constants.LocaleEnUS
	case strings.HasPrefix(value, "zh"):
		return constants.LocaleZhCN
	default:
		return DefaultLocale
	}
}

// ResolveLocale 从请求中解析语言：?locale= 优先，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if q := strings.TrimSpace(c.Query("locale")); q != "" {
		return NormalizeLocale(q)
	}
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return DefaultLocale
	}
	first := strings.SplitN(header, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return NormalizeLocale(first)
}
