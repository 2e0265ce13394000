package types

// Variant selects how the widget is presented. The synthetic variants
// (auto, hosted-auto, embedded-*) are resolved once at construction.
type Variant string

const (
	VariantDesktop         Variant = "desktop"
	VariantMobile          Variant = "mobile"
	VariantHostedDesktop   Variant = "hosted-desktop"
	VariantHostedMobile    Variant = "hosted-mobile"
	VariantHostedAuto      Variant = "hosted-auto"
	VariantAuto            Variant = "auto"
	VariantEmbeddedDesktop Variant = "embedded-desktop"
	VariantEmbeddedMobile  Variant = "embedded-mobile"
)

// DisplayMode is derived from the resolved variant.
type DisplayMode string

const (
	ModeOverlay  DisplayMode = "overlay"
	ModeEmbedded DisplayMode = "embedded"
	ModeHosted   DisplayMode = "hosted"
)

// Mode maps a resolved variant to its display mode.
func (v Variant) Mode() DisplayMode {
	switch v {
	case VariantHostedDesktop, VariantHostedMobile, VariantHostedAuto:
		return ModeHosted
	case VariantEmbeddedDesktop, VariantEmbeddedMobile:
		return ModeEmbedded
	default:
		return ModeOverlay
	}
}

type Flow string

const (
	FlowOnramp  Flow = "ONRAMP"
	FlowOfframp Flow = "OFFRAMP"
)

// Container describes the page anchor an embedded widget is mounted into.
type Container struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Width  int    `json:"width" yaml:"width" toml:"width"`
	Height int    `json:"height" yaml:"height" toml:"height"`
	// Attached is false when the anchor exists but is not part of the document.
	Attached bool `json:"attached" yaml:"attached" toml:"attached"`
}

// Viewport is the host window size used to resolve auto variants.
type Viewport struct {
	Width  int `json:"width" yaml:"width" toml:"width"`
	Height int `json:"height" yaml:"height" toml:"height"`
}

// HostConfig is what the embedding application passes to the SDK. Field
// order is the order parameters appear in the widget URL.
type HostConfig struct {
	SwapAsset           string     `json:"swapAsset,omitempty" yaml:"swapAsset" toml:"swapAsset"`
	OfframpAsset        string     `json:"offrampAsset,omitempty" yaml:"offrampAsset" toml:"offrampAsset"`
	SwapAmount          string     `json:"swapAmount,omitempty" yaml:"swapAmount" toml:"swapAmount" validate:"omitempty,numeric"`
	FiatValue           string     `json:"fiatValue,omitempty" yaml:"fiatValue" toml:"fiatValue" validate:"omitempty,number"`
	FiatCurrency        string     `json:"fiatCurrency,omitempty" yaml:"fiatCurrency" toml:"fiatCurrency" validate:"omitempty,len=3,alpha"`
	UserAddress         string     `json:"userAddress,omitempty" yaml:"userAddress" toml:"userAddress"`
	UserEmailAddress    string     `json:"userEmailAddress,omitempty" yaml:"userEmailAddress" toml:"userEmailAddress" validate:"omitempty,email"`
	HostAPIKey          string     `json:"hostApiKey,omitempty" yaml:"hostApiKey" toml:"hostApiKey"`
	HostLogoURL         string     `json:"hostLogoUrl" yaml:"hostLogoUrl" toml:"hostLogoUrl" validate:"omitempty,url"`
	HostAppName         string     `json:"hostAppName" yaml:"hostAppName" toml:"hostAppName"`
	URL                 string     `json:"url,omitempty" yaml:"url" toml:"url" validate:"omitempty,url"`
	Variant             Variant    `json:"variant,omitempty" yaml:"variant" toml:"variant"`
	WebhookStatusURL    string     `json:"webhookStatusUrl,omitempty" yaml:"webhookStatusUrl" toml:"webhookStatusUrl" validate:"omitempty,url"`
	FinalURL            string     `json:"finalUrl,omitempty" yaml:"finalUrl" toml:"finalUrl" validate:"omitempty,url"`
	ContainerNode       *Container `json:"containerNode,omitempty" yaml:"containerNode" toml:"containerNode"`
	SelectedCountryCode string     `json:"selectedCountryCode,omitempty" yaml:"selectedCountryCode" toml:"selectedCountryCode" validate:"omitempty,len=2,alpha"`
	DefaultAsset        string     `json:"defaultAsset,omitempty" yaml:"defaultAsset" toml:"defaultAsset"`
	DefaultFlow         Flow       `json:"defaultFlow,omitempty" yaml:"defaultFlow" toml:"defaultFlow" validate:"omitempty,oneof=ONRAMP OFFRAMP"`
	EnabledFlows        []Flow     `json:"enabledFlows,omitempty" yaml:"enabledFlows" toml:"enabledFlows" validate:"omitempty,dive,oneof=ONRAMP OFFRAMP"`
	OfframpWebhookV3URL string     `json:"offrampWebhookV3Url,omitempty" yaml:"offrampWebhookV3Url" toml:"offrampWebhookV3Url" validate:"omitempty,url"`
	PaymentMethodType   string     `json:"paymentMethodType,omitempty" yaml:"paymentMethodType" toml:"paymentMethodType" validate:"omitempty,oneof=SEPA CARD APPLEPAY GOOGLEPAY PISP SOFORT PIX"`
}
