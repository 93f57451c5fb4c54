package reference

import "github.com/shopspring/decimal"

// DefaultClearingAccountCode is the POS clearing account.
const DefaultClearingAccountCode = "18011"

// DefaultGSTMultiplier recovers the GST-inclusive value from a 10% GST amount.
var DefaultGSTMultiplier = decimal.NewFromInt(11)

// DefaultConfig returns the built-in reference tables.
func DefaultConfig() TablesConfig {
	return TablesConfig{
		ClearingAccountCode: DefaultClearingAccountCode,
		GSTMultiplier:       DefaultGSTMultiplier.String(),
		Branches: []Branch{
			{Code: "BKT", Name: "Blacktown"},
			{Code: "BON", Name: "Bondi"},
			{Code: "BUR", Name: "Burwood"},
			{Code: "CHC", Name: "Chatswood Chase"},
			{Code: "HOB", Name: "Hornsby"},
			{Code: "EMP", Name: "Melbourne Emporium"},
			{Code: "PA1", Name: "Parramatta"},
			{Code: "PEN", Name: "Penrith"},
			{Code: "ETG", Name: "Eastgardens"},
			{Code: "HUR", Name: "Hurstville"},
			{Code: "BOH", Name: "Box Hill"},
			{Code: "DON", Name: "Doncaster"},
			{Code: "CHW", Name: "Chatswood Westfield"},
			{Code: "MQU", Name: "Macquarie"},
			{Code: "TOP", Name: "Top Ryde"},
			{Code: "IND", Name: "Indooroopilly"},
		},
		StockTypes: []StockType{
			{ID: 1, Description: "Consultation Item", AccountCode: "82240"},
			{ID: 2, Description: "Spectacle Frame", AccountCode: "40002"},
			{ID: 3, Description: "Sunglasses", AccountCode: "40003"},
			{ID: 4, Description: "Spectacle Lens", AccountCode: "40004"},
			{ID: 5, Description: "Contact Lens", AccountCode: "40005"},
			{ID: 6, Description: "Solution", AccountCode: "40006"},
			{ID: 7, Description: "Other Item", AccountCode: "40006"},
			{ID: 8, Description: "Spectacle Lens Addon", AccountCode: "40004"},
			{ID: 9, Description: "Spectacle Lens Tint", AccountCode: "40004"},
			{ID: 10, Description: "Contact Lens Tint", AccountCode: "40005"},
		},
		PaymentTypes: []PaymentType{
			{Code: "EFT", Description: "EFTPOS - Cheque/Savings", AccountCode: "18001"},
			{Code: "VIS", Description: "EFTPOS - Visa", AccountCode: "18001"},
			{Code: "MAS", Description: "EFTPOS - MasterCard", AccountCode: "18001"},
			{Code: "AMX", Description: "EFTPOS - American Express", AccountCode: "18001"},
			{Code: "DIN", Description: "EFTPOS - Diners", AccountCode: "18001"},
			{Code: "OTH", Description: "EFTPOS - Other", AccountCode: "18001"},
			{Code: "CAS", Description: "Cash", AccountCode: "18000"},
			{Code: "CHQ", Description: "Cheque", AccountCode: "18000"},
			{Code: "VOU", Description: "Voucher", AccountCode: "63071"},
			{Code: "DDP", Description: "Direct Deposit", AccountCode: "18005"},
			{Code: "HFD", Description: "Health Fund", AccountCode: "18003"},
			{Code: "AFT", Description: "Pay Later - Afterpay", AccountCode: "18004"},
			{Code: "ZIP", Description: "Pay Later - zipPay", AccountCode: "18004"},
			{Code: "OPN", Description: "Pay Later - Openpay", AccountCode: "18004"},
			{Code: "OTP", Description: "Pay Later - Other", AccountCode: "18004"},
			{Code: "LAT", Description: "Pay Later - LatitudePay", AccountCode: "18004"},
		},
	}
}

// Default returns the built-in reference tables.
func Default() *Tables {
	t, err := New(DefaultConfig())
	if err != nil {
		panic("reference: invalid built-in tables: " + err.Error())
	}
	return t
}
