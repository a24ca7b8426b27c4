package service

import (
	"context"
	"fmt"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// OperationContext holds the settings and client resolved for one order operation.
// It is built per call and never shared between orders.
type OperationContext struct {
	SalesChannelID  string
	Method          domain.PaymentMethod
	TestMode        bool
	AppKey          string
	PublicKey       string
	CaptureMode     domain.CaptureMode
	ShopTitle       string
	LogoURL         string
	ConfigurationID string
	Client          ports.PaymentsClient
}

func (o *OperationContext) InstantCapture() bool {
	return o.CaptureMode == domain.CaptureModeInstant
}

// OperationResolver builds OperationContexts from the settings store.
type OperationResolver struct {
	settings ports.SettingsStore
	gateway  ports.Gateway
}

func NewOperationResolver(settings ports.SettingsStore, gateway ports.Gateway) *OperationResolver {
	return &OperationResolver{
		settings: settings,
		gateway:  gateway,
	}
}

// Resolve reads the settings for the order's sales channel and method.
func (r *OperationResolver) Resolve(ctx context.Context, salesChannelID string, method domain.PaymentMethod) (*OperationContext, error) {
	scope := ports.Scope{SalesChannelID: salesChannelID, MethodCode: method.Code}

	values := make(map[string]string)
	for _, key := range []string{
		domain.SettingTransactionMode,
		domain.SettingLiveModeAppKey,
		domain.SettingLiveModePublicKey,
		domain.SettingTestModeAppKey,
		domain.SettingTestModePublicKey,
		domain.SettingCaptureMode,
		domain.SettingShopTitle,
		domain.SettingLogoURL,
		domain.SettingConfigurationID,
	} {
		v, err := r.settings.Get(ctx, key, scope)
		if err != nil {
			return nil, fmt.Errorf("read setting %s: %w", key, err)
		}
		values[key] = v
	}

	op := &OperationContext{
		SalesChannelID:  salesChannelID,
		Method:          method,
		TestMode:        domain.TransactionMode(values[domain.SettingTransactionMode]) == domain.TransactionModeTest,
		CaptureMode:     domain.CaptureModeDelayed,
		ShopTitle:       values[domain.SettingShopTitle],
		LogoURL:         values[domain.SettingLogoURL],
		ConfigurationID: values[domain.SettingConfigurationID],
	}

	if domain.CaptureMode(values[domain.SettingCaptureMode]) == domain.CaptureModeInstant {
		op.CaptureMode = domain.CaptureModeInstant
	}

	appKey, publicKey := domain.SettingLiveModeAppKey, domain.SettingLiveModePublicKey
	if op.TestMode {
		appKey, publicKey = domain.SettingTestModeAppKey, domain.SettingTestModePublicKey
	}
	op.AppKey = values[appKey]
	op.PublicKey = values[publicKey]

	if op.AppKey == "" {
		return nil, domain.NewSettingsError(appKey, method.Code)
	}

	op.Client = r.gateway.Payments(op.AppKey)
	return op, nil
}
