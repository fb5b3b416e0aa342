package models

import (
	"github.com/shopspring/decimal"
)

// 金额统一以最小货币单位（分）存储，int64 类型；
// 仅在百分比折算与展示时借助 decimal 运算，避免浮点误差。

// FormatCents 将分转换为带货币符号的主单位字符串，如 1000 -> "$10.00"
func FormatCents(cents int64) string {
	return "$" + CentsToMajor(cents)
}

// CentsToMajor 将分转换为 2 位小数的主单位字符串
func CentsToMajor(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// PercentOf 按百分比折算金额（四舍五入到分）
func PercentOf(amountCents int64, percent int64) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// BpsOf 按基点折算金额（1bp = 0.01%，四舍五入到分）
func BpsOf(amountCents int64, bps int) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}
