// Package widgeturl builds the URL the widget is opened with.
package widgeturl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"checkoutsdk/pkg/types"
)

// DefaultBaseURL is used when the host config does not set url.
const DefaultBaseURL = "https://app.ramp.network/"

const sdkType = "WEB"

// Params are the SDK-side values appended after the host config fields.
type Params struct {
	SDKVersion string
	InstanceID string
	// Variant is the resolved variant; it overrides cfg.Variant.
	Variant types.Variant
	// HostURL is the origin of the embedding page.
	HostURL string
	// SendCryptoCallback advertises useSendCryptoCallbackVersion.
	SendCryptoCallback bool
}

// BaseURL returns the configured widget URL or the default one.
func BaseURL(cfg types.HostConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return cfg.URL
	}
	return DefaultBaseURL
}

// Build appends every non-empty config field, in declaration order, and
// then the SDK parameters to the widget base URL. The container anchor and
// the base URL itself are never emitted.
func Build(cfg types.HostConfig, p Params) (string, error) {
	base, err := url.Parse(BaseURL(cfg))
	if err != nil {
		return "", fmt.Errorf("parse widget url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("widget url %q is not absolute", BaseURL(cfg))
	}

	variant := p.Variant
	if variant == "" {
		variant = cfg.Variant
	}
	flows := make([]string, 0, len(cfg.EnabledFlows))
	for _, f := range cfg.EnabledFlows {
		flows = append(flows, string(f))
	}

	q := query{}
	if base.RawQuery != "" {
		q.raw = append(q.raw, base.RawQuery)
	}
	q.add("swapAsset", cfg.SwapAsset)
	q.add("offrampAsset", cfg.OfframpAsset)
	q.add("swapAmount", cfg.SwapAmount)
	q.add("fiatValue", cfg.FiatValue)
	q.add("fiatCurrency", cfg.FiatCurrency)
	q.add("userAddress", cfg.UserAddress)
	q.add("userEmailAddress", cfg.UserEmailAddress)
	q.add("hostApiKey", cfg.HostAPIKey)
	q.add("hostLogoUrl", cfg.HostLogoURL)
	q.add("hostAppName", cfg.HostAppName)
	q.add("variant", string(variant))
	q.add("webhookStatusUrl", cfg.WebhookStatusURL)
	q.add("finalUrl", cfg.FinalURL)
	q.add("selectedCountryCode", cfg.SelectedCountryCode)
	q.add("defaultAsset", cfg.DefaultAsset)
	q.add("defaultFlow", string(cfg.DefaultFlow))
	q.add("enabledFlows", strings.Join(flows, ","))
	q.add("offrampWebhookV3Url", cfg.OfframpWebhookV3URL)
	q.add("paymentMethodType", cfg.PaymentMethodType)
	q.add("sdkType", sdkType)
	q.add("sdkVersion", p.SDKVersion)
	q.add("widgetInstanceId", p.InstanceID)
	if p.SendCryptoCallback {
		q.add("useSendCryptoCallbackVersion", strconv.Itoa(types.SendCryptoSupportedVersion))
	}
	q.add("hostUrl", p.HostURL)

	base.RawQuery = strings.Join(q.raw, "&")
	return base.String(), nil
}

// query keeps insertion order, which url.Values does not.
type query struct{ raw []string }

func (q *query) add(key, value string) {
	if value == "" {
		return
	}
	q.raw = append(q.raw, url.QueryEscape(key)+"="+url.QueryEscape(value))
}
