package lunar

import (
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/shopspring/decimal"
)

// testCardBalance is the fake balance attached to every test-mode payment.
const testCardBalance = "5284.49"

type AmountDTO struct {
	Currency string `json:"currency"`
	Decimal  string `json:"decimal"`
}

func toAmountDTO(a domain.Amount) AmountDTO {
	return AmountDTO{Currency: a.Currency, Decimal: a.String()}
}

func (a AmountDTO) toDomain() (domain.Amount, error) {
	d, err := decimal.NewFromString(a.Decimal)
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.NewAmount(a.Currency, d), nil
}

type CreatePaymentRequest struct {
	Integration            Integration             `json:"integration"`
	Amount                 AmountDTO               `json:"amount"`
	Custom                 Custom                  `json:"custom"`
	MobilePayConfiguration *MobilePayConfiguration `json:"mobilePayConfiguration,omitempty"`
	RedirectURL            string                  `json:"redirectUrl"`
	PreferredPaymentMethod string                  `json:"preferredPaymentMethod,omitempty"`
	Test                   *TestPayload            `json:"test,omitempty"`
}

type Integration struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type Custom struct {
	OrderID       string    `json:"orderId"`
	Products      []Product `json:"products"`
	Customer      Customer  `json:"customer"`
	Platform      Platform  `json:"platform"`
	PluginVersion string    `json:"lunarPluginVersion"`
}

type Product struct {
	ID       int    `json:"ID"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	PhoneNo string `json:"phoneNo"`
	Address string `json:"address"`
	IP      string `json:"IP"`
}

type Platform struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type MobilePayConfiguration struct {
	ConfigurationID string `json:"configurationID"`
	Logo            string `json:"logo"`
}

type TestPayload struct {
	Card        TestCard `json:"card"`
	Fingerprint string   `json:"fingerprint"`
	TDS         TestTDS  `json:"tds"`
}

type TestCard struct {
	Scheme  string    `json:"scheme"`
	Code    string    `json:"code"`
	Status  string    `json:"status"`
	Limit   AmountDTO `json:"limit"`
	Balance AmountDTO `json:"balance"`
}

type TestTDS struct {
	Fingerprint string `json:"fingerprint"`
	Challenge   bool   `json:"challenge"`
	Status      string `json:"status"`
}

type CreatePaymentResponse struct {
	PaymentID string `json:"paymentId"`
}

type PaymentResponse struct {
	ID                   string    `json:"id"`
	AuthorisationCreated bool      `json:"authorisationCreated"`
	Amount               AmountDTO `json:"amount"`
	CaptureState         string    `json:"captureState"`
	RefundState          string    `json:"refundState"`
	CancelState          string    `json:"cancelState"`
}

type ActionRequest struct {
	Amount AmountDTO `json:"amount"`
}

type ActionResponse struct {
	CaptureState string `json:"captureState"`
	RefundState  string `json:"refundState"`
	CancelState  string `json:"cancelState"`
}

func newCreatePaymentRequest(req domain.IntentRequest) CreatePaymentRequest {
	products := make([]Product, len(req.Products))
	for i, p := range req.Products {
		products[i] = Product{ID: p.ID, Name: p.Label, Quantity: p.Quantity}
	}

	out := CreatePaymentRequest{
		Integration: Integration{
			Key:  req.PublicKey,
			Name: req.ShopTitle,
			Logo: req.LogoURL,
		},
		Amount: toAmountDTO(req.Amount),
		Custom: Custom{
			OrderID:  req.OrderNumber,
			Products: products,
			Customer: Customer{
				Name:    req.Customer.Name,
				Email:   req.Customer.Email,
				PhoneNo: req.Customer.PhoneNo,
				Address: req.Customer.Address,
				IP:      req.Customer.IP,
			},
			Platform: Platform{
				Name:    req.PlatformName,
				Version: req.PlatformVersion,
			},
			PluginVersion: req.PluginVersion,
		},
		RedirectURL:            req.RedirectURL,
		PreferredPaymentMethod: req.PreferredPaymentMethod,
	}

	if req.MobilePayConfiguration != "" {
		out.MobilePayConfiguration = &MobilePayConfiguration{
			ConfigurationID: req.MobilePayConfiguration,
			Logo:            req.LogoURL,
		}
	}

	if req.TestMode {
		balance := AmountDTO{Currency: req.Amount.Currency, Decimal: testCardBalance}
		out.Test = &TestPayload{
			Card: TestCard{
				Scheme:  "supported",
				Code:    "valid",
				Status:  "valid",
				Limit:   balance,
				Balance: balance,
			},
			Fingerprint: "success",
			TDS: TestTDS{
				Fingerprint: "success",
				Challenge:   true,
				Status:      "authenticated",
			},
		}
	}

	return out
}
