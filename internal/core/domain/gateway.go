package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RemoteStateCompleted is the gateway's sentinel for a successful capture, refund or cancel.
const RemoteStateCompleted = "completed"

// Amount is a monetary value as exchanged with the gateway.
type Amount struct {
	Currency string          `json:"currency"`
	Decimal  decimal.Decimal `json:"decimal"`
}

func NewAmount(currency string, value decimal.Decimal) Amount {
	return Amount{Currency: strings.ToUpper(currency), Decimal: value}
}

// String renders the amount with the currency's minor-unit precision.
func (a Amount) String() string {
	return a.Decimal.StringFixed(CurrencyExponent(a.Currency))
}

// RemoteTransaction is the gateway's view of a payment intent.
type RemoteTransaction struct {
	ID                   string
	AuthorisationCreated bool
	Amount               Amount
	CaptureState         string
	RefundState          string
	CancelState          string
}

// ActionResult is the outcome reported by the gateway for a mutating call.
type ActionResult struct {
	CaptureState string
	RefundState  string
	CancelState  string
}

// IntentRequest carries everything needed to open a hosted checkout.
type IntentRequest struct {
	PublicKey              string
	ShopTitle              string
	LogoURL                string
	MobilePayConfiguration string
	Amount                 Amount
	OrderNumber            string
	Products               []LineItem
	Customer               IntentCustomer
	PlatformName           string
	PlatformVersion        string
	PluginVersion          string
	RedirectURL            string
	PreferredPaymentMethod string
	TestMode               bool
}

type IntentCustomer struct {
	Name    string
	Email   string
	PhoneNo string
	Address string
	IP      string
}

var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// CurrencyExponent returns the number of minor-unit digits for an ISO 4217 code.
func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}
