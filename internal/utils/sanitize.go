package utils

import (
	"regexp"
	"strings"
)

var sanitizePatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)api[_-]?key["']?\s*[:=]\s*["']?([a-zA-Z0-9_-]{10,})["']?`), `api_key="***"`},
	{regexp.MustCompile(`(?i)secret[_-]?key["']?\s*[:=]\s*["']?([a-zA-Z0-9_-]{10,})["']?`), `secret_key="***"`},
	{regexp.MustCompile(`(?i)signature=([a-fA-F0-9]{32,})`), `signature=***`},
	{regexp.MustCompile(`(?i)Bearer\s+([A-Za-z0-9\-_\.=]{20,})`), `Bearer ***`},
	{regexp.MustCompile(`([?&])(api[_-]?key|secret[_-]?key|token|password|auth)=([A-Za-z0-9\-_\.=]{10,})`), `${1}${2}=***`},
	{regexp.MustCompile(`\b([A-Za-z0-9]{40,})\b`), `***`},
}

// SanitizeString 脱敏字符串中的密钥与签名，错误写入日志前必须先脱敏
func SanitizeString(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, p := range sanitizePatterns {
		result = p.pattern.ReplaceAllString(result, p.replacement)
	}
	return result
}

// NormalizeSymbol 规范化交易对符号
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	symbol = strings.ReplaceAll(symbol, "/", "")
	symbol = strings.ReplaceAll(symbol, "-", "")
	symbol = strings.ReplaceAll(symbol, "_", "")
	if symbol != "" && !strings.HasSuffix(symbol, "USDT") {
		symbol += "USDT"
	}
	return symbol
}
