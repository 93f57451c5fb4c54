package journal

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is a loosely typed POS record as decoded from JSON.
type Record map[string]any

// Field is an ordered list of accepted key spellings for one logical field.
// Keys are matched exactly; the first key holding a non-null value wins.
type Field []string

// Recognised field spellings.
var (
	InvoiceItemsField = Field{"ITEMS", "Items", "items"}
	StockTypeIDField  = Field{"STOCK_TYPE_ID", "StockTypeId", "stock_type_id"}
	TotalField        = Field{"TOTAL", "Total", "total"}
	GSTAmountField    = Field{"GST_AMOUNT", "GstAmount", "gst_amount"}

	ReceiptItemsField    = Field{"RECEIPT_ITEMS", "ReceiptItems", "receipt_items"}
	PaymentTypeCodeField = Field{"PAYMENT_TYPE_CODE", "PaymentTypeCode", "payment_type_code"}
	AmountField          = Field{"AMOUNT", "Amount", "amount"}
)

// Lookup returns the value of the first alias present in r.
func (f Field) Lookup(r Record) (any, bool) {
	for _, key := range f {
		if v, ok := r[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Items returns the nested line items of a record. Anything that is not a
// list of objects yields nil.
func (r Record) Items(f Field) []Record {
	v, ok := f.Lookup(r)
	if !ok {
		return nil
	}

	switch list := v.(type) {
	case []Record:
		return list
	case []map[string]any:
		out := make([]Record, len(list))
		for i, m := range list {
			out[i] = Record(m)
		}
		return out
	case []any:
		out := make([]Record, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// amount resolves a monetary field. An absent or blank field is zero; ok is
// false only when a value is present but not numeric.
func (r Record) amount(f Field) (decimal.Decimal, bool) {
	v, present := f.Lookup(r)
	if !present {
		return decimal.Zero, true
	}

	switch n := v.(type) {
	case json.Number:
		return parseDecimal(string(n))
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.Zero, true
		}
		return parseDecimal(n)
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// stockTypeID resolves the category identifier. Zero, negative and
// non-integral values are not resolvable.
func (r Record) stockTypeID() (int, bool) {
	v, ok := StockTypeIDField.Lookup(r)
	if !ok {
		return 0, false
	}

	var id int64
	switch n := v.(type) {
	case json.Number:
		parsed, ok := parseIntegral(string(n))
		if !ok {
			return 0, false
		}
		id = parsed
	case string:
		parsed, ok := parseIntegral(n)
		if !ok {
			return 0, false
		}
		id = parsed
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		id = int64(n)
	case int:
		id = int64(n)
	case int64:
		id = n
	default:
		return 0, false
	}

	if id <= 0 {
		return 0, false
	}
	return int(id), true
}

// parseIntegral parses an integer written in any numeric form the POS API
// emits, e.g. "4", "4.0" or "4E0".
func parseIntegral(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	d, ok := parseDecimal(s)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}

// paymentTypeCode resolves the payment method code.
func (r Record) paymentTypeCode() (string, bool) {
	v, ok := PaymentTypeCodeField.Lookup(r)
	if !ok {
		return "", false
	}
	code, ok := v.(string)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}
