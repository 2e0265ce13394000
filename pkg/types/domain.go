package types

// Action statuses the poller treats as terminal.
const (
	ActionStatusReleased = "RELEASED"
	ActionStatusError    = "ERROR"
)

// AssetInfo describes the crypto asset of a purchase or sale.
type AssetInfo struct {
	Address  *string `json:"address"`
	Symbol   string  `json:"symbol"`
	Chain    string  `json:"chain,omitempty"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Decimals int     `json:"decimals"`
}

// Action is one entry of a purchase's status history.
type Action struct {
	ID        string `json:"id"`
	NewStatus string `json:"newStatus"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details"`
}

// Purchase is the on-ramp resource returned by the host API.
type Purchase struct {
	ID                string    `json:"id"`
	EndTime           *string   `json:"endTime"`
	Asset             AssetInfo `json:"asset"`
	ReceiverAddress   string    `json:"receiverAddress"`
	CryptoAmount      string    `json:"cryptoAmount"`
	FiatCurrency      string    `json:"fiatCurrency"`
	FiatValue         string    `json:"fiatValue"`
	AssetExchangeRate float64   `json:"assetExchangeRate"`
	BaseRampFee       string    `json:"baseRampFee"`
	NetworkFee        string    `json:"networkFee"`
	AppliedFee        string    `json:"appliedFee"`
	PaymentMethodType string    `json:"paymentMethodType"`
	FinalTxHash       string    `json:"finalTxHash,omitempty"`
	CreatedAt         string    `json:"createdAt"`
	UpdatedAt         string    `json:"updatedAt"`
	Status            string    `json:"status"`
	Actions           []Action  `json:"actions"`
}

// HasActionStatus reports whether any action moved the purchase to status.
func (p Purchase) HasActionStatus(status string) bool {
	for _, a := range p.Actions {
		if a.NewStatus == status {
			return true
		}
	}
	return false
}

// OfframpSale is the off-ramp resource announced by OFFRAMP_SALE_CREATED.
type OfframpSale struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Crypto    struct {
		Amount    string    `json:"amount"`
		AssetInfo AssetInfo `json:"assetInfo"`
	} `json:"crypto"`
	Fiat struct {
		Amount         float64 `json:"amount"`
		CurrencySymbol string  `json:"currencySymbol"`
	} `json:"fiat"`
}

type PurchaseCreatedPayload struct {
	Purchase          Purchase `json:"purchase"`
	PurchaseViewToken string   `json:"purchaseViewToken"`
	APIURL            string   `json:"apiUrl"`
}

type OfframpSaleCreatedPayload struct {
	Sale          OfframpSale `json:"sale"`
	SaleViewToken string      `json:"saleViewToken"`
	APIURL        string      `json:"apiUrl"`
}

type PurchaseSuccessfulPayload struct {
	Purchase Purchase `json:"purchase"`
}

// CryptoAccountRequest asks the host for a receiving account.
type CryptoAccountRequest struct {
	Type        string `json:"type"`
	AssetSymbol string `json:"assetSymbol"`
}

// CryptoAccountResult is the host's answer to CryptoAccountRequest.
type CryptoAccountResult struct {
	Address     string `json:"address"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	AssetSymbol string `json:"assetSymbol,omitempty"`
}

// SendCryptoRequest asks the host wallet to send funds for an off-ramp sale.
type SendCryptoRequest struct {
	AssetInfo AssetInfo `json:"assetInfo"`
	Amount    string    `json:"amount"`
	Address   string    `json:"address"`
}

type SendCryptoResult struct {
	TxHash string `json:"txHash"`
}

// ErrorPayload replaces a reply payload when the host callback failed.
type ErrorPayload struct {
	Error string `json:"error"`
}
