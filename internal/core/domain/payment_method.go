package domain

type PaymentMethod struct {
	ID   string
	Code string
	Name string
}

const (
	PaymentMethodCodeCard      = "card"
	PaymentMethodCodeMobilePay = "mobilePay"
)

var (
	CardPaymentMethod = PaymentMethod{
		ID:   "1a9bc76a3c244278a51a2e90c1e6f040",
		Code: PaymentMethodCodeCard,
		Name: "Card",
	}
	MobilePayPaymentMethod = PaymentMethod{
		ID:   "5e55d4f2e2a4465aa7c69b4e3b4d3b7e",
		Code: PaymentMethodCodeMobilePay,
		Name: "MobilePay",
	}
)

var paymentMethods = map[string]PaymentMethod{
	CardPaymentMethod.ID:      CardPaymentMethod,
	MobilePayPaymentMethod.ID: MobilePayPaymentMethod,
}

// LookupPaymentMethod returns the Lunar payment method registered under id.
func LookupPaymentMethod(id string) (PaymentMethod, bool) {
	pm, ok := paymentMethods[id]
	return pm, ok
}

// PaymentMethodIDs lists the ids of every Lunar payment method.
func PaymentMethodIDs() []string {
	return []string{CardPaymentMethod.ID, MobilePayPaymentMethod.ID}
}

type CaptureMode string

const (
	CaptureModeInstant CaptureMode = "instant"
	CaptureModeDelayed CaptureMode = "delayed"
)

type TransactionMode string

const (
	TransactionModeLive TransactionMode = "live"
	TransactionModeTest TransactionMode = "test"
)

// Setting keys read per sales channel and payment method.
const (
	SettingTransactionMode   = "TransactionMode"
	SettingLiveModeAppKey    = "LiveModeAppKey"
	SettingLiveModePublicKey = "LiveModePublicKey"
	SettingTestModeAppKey    = "TestModeAppKey"
	SettingTestModePublicKey = "TestModePublicKey"
	SettingCaptureMode       = "CaptureMode"
	SettingShopTitle         = "shopTitle"
	SettingLogoURL           = "logoUrl"
	SettingConfigurationID   = "configurationId"
)
