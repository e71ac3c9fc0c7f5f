package importer

// knownCurrencies is the accepted set of ISO 4217 codes.
var knownCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CHF": {}, "JPY": {},
	"CAD": {}, "AUD": {}, "NZD": {}, "SEK": {}, "NOK": {},
	"DKK": {}, "PLN": {}, "CZK": {}, "HUF": {}, "RON": {},
	"BGN": {}, "TRY": {}, "BRL": {}, "MXN": {}, "ARS": {},
	"CLP": {}, "COP": {}, "ZAR": {}, "NGN": {}, "KES": {},
	"INR": {}, "CNY": {}, "HKD": {}, "SGD": {}, "KRW": {},
	"THB": {}, "IDR": {}, "MYR": {}, "PHP": {}, "VND": {},
	"AED": {}, "SAR": {}, "ILS": {}, "EGP": {},
}

func knownCurrency(code string) bool {
	_, ok := knownCurrencies[code]
	return ok
}
