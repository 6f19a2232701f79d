// Package currency はインドルピー表記の金額フォーマットを提供する。
package currency

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Symbol は金額の前に付ける通貨記号。
const Symbol = "₹"

// DefaultLocale は桁区切りに使うロケール。
const DefaultLocale = "en-IN"

// Formatter はロケールに従って金額を整形する。
// ロケールが解釈できない場合は桁区切りなしの表記になる。
type Formatter struct {
	printer *message.Printer
}

// NewFormatter はFormatterを生成する。
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return &Formatter{}
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Format は金額を"₹"付きの整数表記に変換する。
func (f *Formatter) Format(v float64) string {
	if f == nil || f.printer == nil {
		return Symbol + strconv.FormatFloat(v, 'f', -1, 64)
	}
	return Symbol + f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

var defaultFormatter = NewFormatter(DefaultLocale)

// FormatINR はen-INロケールで金額を整形する。
func FormatINR(v float64) string {
	return defaultFormatter.Format(v)
}
