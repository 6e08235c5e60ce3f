package domain

import (
	"strings"
	"unicode"
)

// AddressPolicy 联系方式规范化策略
type AddressPolicy interface {
	// Normalize 将原始联系方式转换为可投递的地址
	Normalize(raw string) (string, error)
}

// digitsOnly 去除所有非数字字符
func digitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayPolicy 展示格式：首位 0 替换为国家区号并补 "+" 前缀，不校验长度。
// 用于网关投递字段等只需展示格式的位置。
type DisplayPolicy struct {
	CountryCode string
}

// Normalize 实现 AddressPolicy
func (p DisplayPolicy) Normalize(raw string) (string, error) {
	digits := digitsOnly(raw)
	if digits == "" {
		return "", ErrEmptyAddress
	}
	if strings.HasPrefix(digits, "0") {
		digits = p.CountryCode + digits[1:]
	}
	return "+" + digits, nil
}

// CanonicalPolicy 规范长度格式，派发引擎以此作为收件人校验门槛。
// 结果为纯数字：国家区号 + 用户号码，总长度必须等于 len(CountryCode)+SubscriberDigits。
type CanonicalPolicy struct {
	CountryCode      string
	SubscriberDigits int
}

// Normalize 实现 AddressPolicy
func (p CanonicalPolicy) Normalize(raw string) (string, error) {
	digits := digitsOnly(raw)
	if digits == "" {
		return "", ErrEmptyAddress
	}
	if strings.HasPrefix(digits, "0") {
		digits = p.CountryCode + digits[1:]
	}
	if !strings.HasPrefix(digits, p.CountryCode) {
		digits = p.CountryCode + digits
	}
	if len(digits) != p.TotalLength() {
		return "", ErrInvalidAddressLength
	}
	return digits, nil
}

// TotalLength 规范地址的总位数
func (p CanonicalPolicy) TotalLength() int {
	return len(p.CountryCode) + p.SubscriberDigits
}
