// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// errNotObject はJSONオブジェクトを期待する箇所にnullが渡された場合のエラー。
var errNotObject = errors.New("json value is not an object")

// CartLineItem はカート内の1行（商品ID、表示情報、単価、数量）を表す。
// IDは正規化済み文字列で比較する。数量が0以下の行は保存されず削除される。
type CartLineItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Qty    float64 `json:"qty"`
	ImgSrc string  `json:"imgSrc"`
	Price  float64 `json:"price"`
}

// UnmarshalJSON はカート行を寛容に読み込む。
// idは任意のJSONプリミティブを正規化文字列に変換する。
// qtyとpriceは数値・数値文字列・真偽値を受け付け、それ以外は0とする。
func (c *CartLineItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotObject
	}
	c.ID = CanonicalID(fields["id"])
	c.Title = coerceString(fields["title"])
	c.Qty = CoerceNumber(fields["qty"])
	c.ImgSrc = coerceString(fields["imgSrc"])
	c.Price = CoerceNumber(fields["price"])
	return nil
}

// Quantity は表示用の整数数量を返す。
func (c CartLineItem) Quantity() int {
	return int(math.Trunc(finiteOrZero(c.Qty)))
}

// LineTotal は単価×数量を返す。非数値は0として扱う。
func (c CartLineItem) LineTotal() float64 {
	return finiteOrZero(c.Price) * finiteOrZero(c.Qty)
}

// CanonicalID はJSON値をID比較用の正規化文字列に変換する。
// 数値は最短の10進表記、文字列はそのまま、null・欠落・解析不能な値は空文字列を返す。
// 比較する両辺を同じ規則で変換するため、空文字列どうしは同じIDとして扱われる。
func CanonicalID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return FormatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(string(raw))
	}
}

// CoerceNumber はJSON値を数値に変換する。変換できない場合は0を返す。
func CoerceNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return finiteOrZero(t)
	case string:
		return ParseNumber(t)
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// ParseNumber は文字列を数値として解釈する。空文字列や不正な文字列は0を返す。
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(f)
}

// FormatNumber は数値をIDとして使える最短の10進表記に変換する。
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// coerceString はJSON値を文字列に変換する。文字列以外は正規化表記、null・欠落は空文字列。
func coerceString(raw json.RawMessage) string {
	return CanonicalID(raw)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
