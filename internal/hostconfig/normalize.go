// Package hostconfig turns the embedding application's configuration into
// a normalised one. Invalid fields never fail construction: they are
// replaced by safe defaults and reported as diagnostics. Only a missing or
// unusable embed anchor is reported as an error, because that is a
// programming mistake in the host page.
package hostconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"checkoutsdk/pkg/types"
)

// Severity mirrors the widget's diagnostic levels.
type Severity string

const (
	SeverityVerbose  Severity = "VERBOSE"
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ConfigError is a non-fatal diagnostic about one config field.
type ConfigError struct {
	FieldName    string
	Description  string
	ExampleValue string
	Severity     Severity
}

// Minimum embed anchor sizes, in CSS pixels.
const (
	WidgetDesktopWidth    = 895
	WidgetDesktopHeight   = 590
	MinWidgetMobileWidth  = 320
	MinWidgetMobileHeight = 667
	desktopMediaMinWidth  = 920
	desktopMediaMinHeight = 630
)

var (
	ErrContainerRequired = errors.New("container node has to be provided for embedded variants")
	ErrContainerDetached = errors.New("container node must be attached to the document")
)

// containerTooSmallError reports an embed anchor below the variant minimum.
type containerTooSmallError struct {
	dim     string
	min     int
	variant types.Variant
}

func (e containerTooSmallError) Error() string {
	return fmt.Sprintf("container node must be at least %dpx %s for %s", e.min, e.dim, e.variant)
}

// IsContainerTooSmall reports whether err is a container size violation.
func IsContainerTooSmall(err error) bool {
	var e containerTooSmallError
	return errors.As(err, &e)
}

var validVariants = []types.Variant{
	types.VariantDesktop,
	types.VariantMobile,
	types.VariantHostedDesktop,
	types.VariantHostedMobile,
	types.VariantHostedAuto,
	types.VariantAuto,
	types.VariantEmbeddedDesktop,
	types.VariantEmbeddedMobile,
}

var examples = map[string]string{
	"variant":             "'desktop'",
	"swapAmount":          "'1000000000000000000'",
	"fiatValue":           "'100'",
	"fiatCurrency":        "'EUR'",
	"userEmailAddress":    "'user@example.com'",
	"hostLogoUrl":         "'https://example.com/logo.png'",
	"hostAppName":         "'My App'",
	"url":                 "'https://app.ramp.network'",
	"webhookStatusUrl":    "'https://example.com/webhook'",
	"finalUrl":            "'https://example.com/done'",
	"selectedCountryCode": "'GB'",
	"defaultFlow":         "'ONRAMP'",
	"enabledFlows":        "['ONRAMP', 'OFFRAMP']",
	"offrampWebhookV3Url": "'https://example.com/offramp'",
	"paymentMethodType":   "'CARD'",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize validates cfg, substitutes defaults for invalid fields, logs
// the resulting diagnostics, and returns them. The error is non-nil only
// for embed anchor violations.
func Normalize(cfg types.HostConfig, log zerolog.Logger) (types.HostConfig, []ConfigError, error) {
	out := cfg
	out.EnabledFlows = append([]types.Flow(nil), cfg.EnabledFlows...)
	var diags []ConfigError

	if out.Variant == "" {
		out.Variant = types.VariantDesktop
	}
	out.Variant = types.Variant(strings.ToLower(string(out.Variant)))
	if !isValidVariant(out.Variant) {
		out.Variant = types.VariantDesktop
		diags = append(diags, ConfigError{
			FieldName:    "variant",
			Description:  "Invalid value for `variant` config field",
			ExampleValue: examples["variant"],
			Severity:     SeverityWarning,
		})
	}

	if strings.TrimSpace(out.HostAppName) == "" {
		diags = append(diags, ConfigError{
			FieldName:    "hostAppName",
			Description:  "Missing value for `hostAppName` config field",
			ExampleValue: examples["hostAppName"],
			Severity:     SeverityError,
		})
	}
	if strings.TrimSpace(out.HostLogoURL) == "" {
		diags = append(diags, ConfigError{
			FieldName:    "hostLogoUrl",
			Description:  "Missing value for `hostLogoUrl` config field",
			ExampleValue: examples["hostLogoUrl"],
			Severity:     SeverityError,
		})
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			seen := map[string]bool{}
			for _, fe := range verrs {
				name := topLevelField(fe.Namespace())
				if seen[name] {
					continue
				}
				seen[name] = true
				clearField(&out, name)
				diags = append(diags, ConfigError{
					FieldName:    name,
					Description:  fmt.Sprintf("Invalid value for `%s` config field (%s), it will be ignored", name, fe.Tag()),
					ExampleValue: examples[name],
					Severity:     SeverityWarning,
				})
			}
		}
	}

	if out.Variant.Mode() == types.ModeEmbedded {
		if err := ValidateContainer(out.ContainerNode, out.Variant); err != nil {
			logDiagnostics(log, diags)
			return out, diags, err
		}
	} else {
		out.ContainerNode = nil
	}

	logDiagnostics(log, diags)
	return out, diags, nil
}

// ValidateContainer checks the embed anchor against the variant minimum size.
func ValidateContainer(c *types.Container, variant types.Variant) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return ErrContainerRequired
	}
	if !c.Attached {
		return ErrContainerDetached
	}
	minW, minH := MinWidgetMobileWidth, MinWidgetMobileHeight
	if variant == types.VariantEmbeddedDesktop {
		minW, minH = WidgetDesktopWidth, WidgetDesktopHeight
	}
	if c.Width < minW {
		return containerTooSmallError{dim: "wide", min: minW, variant: variant}
	}
	if c.Height < minH {
		return containerTooSmallError{dim: "tall", min: minH, variant: variant}
	}
	return nil
}

// ResolveVariant turns auto variants into concrete ones using the
// desktop media rule (min-width 920, min-height 630). A zero viewport is
// treated as desktop.
func ResolveVariant(v types.Variant, vp types.Viewport) types.Variant {
	switch v {
	case types.VariantMobile, types.VariantDesktop,
		types.VariantHostedMobile, types.VariantHostedDesktop,
		types.VariantEmbeddedDesktop, types.VariantEmbeddedMobile:
		return v
	}
	desktop := (vp.Width == 0 && vp.Height == 0) ||
		(vp.Width >= desktopMediaMinWidth && vp.Height >= desktopMediaMinHeight)
	if v == types.VariantHostedAuto {
		if desktop {
			return types.VariantHostedDesktop
		}
		return types.VariantHostedMobile
	}
	if desktop {
		return types.VariantDesktop
	}
	return types.VariantMobile
}

func isValidVariant(v types.Variant) bool {
	for _, k := range validVariants {
		if k == v {
			return true
		}
	}
	return false
}

// topLevelField maps "HostConfig.enabledFlows[1]" to "enabledFlows".
func topLevelField(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func clearField(cfg *types.HostConfig, name string) {
	switch name {
	case "swapAmount":
		cfg.SwapAmount = ""
	case "fiatValue":
		cfg.FiatValue = ""
	case "fiatCurrency":
		cfg.FiatCurrency = ""
	case "userEmailAddress":
		cfg.UserEmailAddress = ""
	case "hostLogoUrl":
		cfg.HostLogoURL = ""
	case "url":
		cfg.URL = ""
	case "webhookStatusUrl":
		cfg.WebhookStatusURL = ""
	case "finalUrl":
		cfg.FinalURL = ""
	case "selectedCountryCode":
		cfg.SelectedCountryCode = ""
	case "defaultFlow":
		cfg.DefaultFlow = ""
	case "enabledFlows":
		cfg.EnabledFlows = nil
	case "offrampWebhookV3Url":
		cfg.OfframpWebhookV3URL = ""
	case "paymentMethodType":
		cfg.PaymentMethodType = ""
	}
}

func logDiagnostics(log zerolog.Logger, diags []ConfigError) {
	for _, d := range diags {
		log.Warn().
			Str("field", d.FieldName).
			Str("example", d.ExampleValue).
			Str("severity", string(d.Severity)).
			Msg(d.Description)
	}
}
