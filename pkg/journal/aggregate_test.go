package journal

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateInvoices(t *testing.T) {
	invoices := []Record{
		invoice(
			invoiceItem(4, "220.00", "20.00"),
			invoiceItem(4, "-110.00", "-10.00"),
			invoiceItem(5, 100.0, 0.0),
		),
		invoice(
			invoiceItem(5, json.Number("50.25"), json.Number("0")),
		),
	}

	got := AggregateInvoices(invoices)

	require.Len(t, got, 2)
	assert.True(t, got[4].Total.Equal(dec("110")), "total 4 = %s", got[4].Total)
	assert.True(t, got[4].GST.Equal(dec("10")), "gst 4 = %s", got[4].GST)
	assert.True(t, got[5].Total.Equal(dec("150.25")), "total 5 = %s", got[5].Total)
	assert.True(t, got[5].GST.IsZero())
}

func TestAggregateInvoicesSkipsMalformedItems(t *testing.T) {
	invoices := []Record{
		invoice(
			Record{"TOTAL": "10", "GST_AMOUNT": "1"}, // no stock type
			invoiceItem(0, "10", "1"),                // unresolvable id
			invoiceItem("abc", "10", "1"),            // unresolvable id
			invoiceItem(2.5, "10", "1"),              // non-integral id
			invoiceItem(3, "n/a", "bad"),             // both amounts unparseable
			invoiceItem(3, "n/a", "2.00"),            // total unparseable, gst counts
			invoiceItem(6, "33.00", nil),             // gst absent
			invoiceItem("7", "", "0.5"),              // blank total
		),
		{"ITEMS": "not a list"},
		{"NOTHING": true},
	}

	got := AggregateInvoices(invoices)

	require.Len(t, got, 3)
	assert.True(t, got[3].Total.IsZero())
	assert.True(t, got[3].GST.Equal(dec("2")))
	assert.True(t, got[6].Total.Equal(dec("33")))
	assert.True(t, got[7].GST.Equal(dec("0.5")))
}

func TestAggregateInvoicesThreshold(t *testing.T) {
	invoices := []Record{
		invoice(
			invoiceItem(1, "10.00", "1.00"),
			invoiceItem(1, "-9.99", "-1.00"),
			invoiceItem(2, "0.02", "0"),
		),
	}

	got := AggregateInvoices(invoices)

	_, has1 := got[1]
	assert.False(t, has1, "net 0.01 / 0 must be dropped")
	require.Contains(t, got, 2)
	assert.True(t, got[2].Total.Equal(dec("0.02")))
}

func TestFieldAliases(t *testing.T) {
	invoices := []Record{
		{"Items": []any{
			map[string]any{"StockTypeId": json.Number("2"), "Total": "11.00", "GstAmount": "1.00"},
		}},
		{"items": []any{
			map[string]any{"stock_type_id": "2", "total": "22.00", "gst_amount": "2.00"},
		}},
		{"ITEMS": []any{
			// First present alias wins: TOTAL shadows total.
			map[string]any{"STOCK_TYPE_ID": 2, "TOTAL": "1.00", "total": "999", "GST_AMOUNT": nil, "GstAmount": "0"},
		}},
	}

	got := AggregateInvoices(invoices)

	require.Contains(t, got, 2)
	assert.True(t, got[2].Total.Equal(dec("34")), "total = %s", got[2].Total)
	assert.True(t, got[2].GST.Equal(dec("3")), "gst = %s", got[2].GST)

	receipts := []Record{
		{"ReceiptItems": []any{map[string]any{"PaymentTypeCode": "CAS", "Amount": "5"}}},
		{"receipt_items": []any{map[string]any{"payment_type_code": "CAS", "amount": 7.5}}},
	}

	nets := AggregateReceipts(receipts)
	require.Contains(t, nets, "CAS")
	assert.True(t, nets["CAS"].Equal(dec("12.5")))
}

func TestStockTypeIDInDecimalForm(t *testing.T) {
	var invoices []Record
	body := `[{"ITEMS":[
		{"STOCK_TYPE_ID":4.0,"TOTAL":"220.00","GST_AMOUNT":20},
		{"StockTypeId":"4.0","Total":"11.00","GstAmount":"1.00"},
		{"stock_type_id":4E0,"total":"11.00","gst_amount":"1.00"},
		{"STOCK_TYPE_ID":"5","TOTAL":100,"GST_AMOUNT":0},
		{"STOCK_TYPE_ID":4.5,"TOTAL":"999","GST_AMOUNT":"9"}
	]}]`
	d := json.NewDecoder(strings.NewReader(body))
	d.UseNumber()
	require.NoError(t, d.Decode(&invoices))

	got := AggregateInvoices(invoices)

	require.Len(t, got, 2)
	require.Contains(t, got, 4)
	assert.Equal(t, "242", got[4].Total.String())
	assert.Equal(t, "22", got[4].GST.String())
	assert.Equal(t, "100", got[5].Total.String())
}

func TestParseIntegral(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"4", 4, true},
		{" 4 ", 4, true},
		{"4.0", 4, true},
		{"4.00", 4, true},
		{"4E0", 4, true},
		{"4e1", 40, true},
		{"4.5", 0, false},
		{"four", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseIntegral(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseIntegral(%q) = %d, %v, expected %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFieldLookupIsCaseSensitive(t *testing.T) {
	r := Record{"total": "1", "Stock_Type_Id": "3"}

	_, ok := StockTypeIDField.Lookup(r)
	assert.False(t, ok)

	v, ok := TotalField.Lookup(r)
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestAggregateReceipts(t *testing.T) {
	receipts := []Record{
		receipt(
			receiptItem("VIS", "75.00"),
			receiptItem("CAS", "50.00"),
			receiptItem("CAS", "-20.00"),
			receiptItem("EFT", "10.00"),
			receiptItem("EFT", "-10.00"),
			receiptItem("", "3.00"),
			receiptItem("MAS", "oops"),
			Record{"AMOUNT": "9"},
			Record{"PAYMENT_TYPE_CODE": 42, "AMOUNT": "9"},
		),
	}

	got := AggregateReceipts(receipts)

	require.Len(t, got, 2)
	assert.True(t, got["VIS"].Equal(dec("75")))
	assert.True(t, got["CAS"].Equal(dec("30")))
}

func TestAggregateReceiptsNegativeNet(t *testing.T) {
	got := AggregateReceipts([]Record{receipt(receiptItem("CAS", "-40.00"), receiptItem("CAS", "15.00"))})

	require.Contains(t, got, "CAS")
	assert.True(t, got["CAS"].Equal(dec("-25")))
}

func TestBucketMatchesSignedSum(t *testing.T) {
	values := []string{"10.10", "-3.33", "0", "7.77", "-0.01", "-100.5", "42"}

	var b bucket
	sum := dec("0")
	for _, v := range values {
		b.add(dec(v))
		sum = sum.Add(dec(v))
	}

	assert.True(t, b.net().Equal(sum), "bucket %s != sum %s", b.net(), sum)
}

func TestSplitTax(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		gst     string
		taxable string
		exempt  string
	}{
		{"fully taxable", "220.00", "20.00", "220", "0"},
		{"fully exempt", "100.00", "0", "0", "100"},
		{"mixed", "320.00", "20.00", "220", "100"},
		{"refund", "-55.00", "-5.00", "-55", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := SplitTax(CategoryNet{Total: dec(tt.total), GST: dec(tt.gst)}, dec("11"))
			if !split.Taxable.Equal(dec(tt.taxable)) {
				t.Errorf("Taxable = %s, expected %s", split.Taxable, tt.taxable)
			}
			if !split.Exempt.Equal(dec(tt.exempt)) {
				t.Errorf("Exempt = %s, expected %s", split.Exempt, tt.exempt)
			}
		})
	}
}
