package turnkey

// activityRequest is the envelope Turnkey expects for submit endpoints
type activityRequest struct {
	Type           string      `json:"type"`
	TimestampMs    string      `json:"timestampMs"`
	OrganizationID string      `json:"organizationId"`
	Parameters     interface{} `json:"parameters"`
}

// activityResponse wraps the activity result returned by submit endpoints
type activityResponse struct {
	Activity struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Result struct {
			CreateWalletResult *createWalletResult `json:"createWalletResult,omitempty"`
			SignRawPayloadResult *signRawPayloadResult `json:"signRawPayloadResult,omitempty"`
		} `json:"result"`
	} `json:"activity"`
}

type createWalletParams struct {
	WalletName string          `json:"walletName"`
	Accounts   []walletAccount `json:"accounts"`
}

type walletAccount struct {
	Curve         string `json:"curve"`
	PathFormat    string `json:"pathFormat"`
	Path          string `json:"path"`
	AddressFormat string `json:"addressFormat"`
}

type createWalletResult struct {
	WalletID  string   `json:"walletId"`
	Addresses []string `json:"addresses"`
}

type signRawPayloadParams struct {
	SignWith     string `json:"signWith"`
	Payload      string `json:"payload"`
	Encoding     string `json:"encoding"`
	HashFunction string `json:"hashFunction"`
}

type signRawPayloadResult struct {
	R string `json:"r"`
	S string `json:"s"`
	V string `json:"v"`
}

// Wallet is a custodial wallet provisioned for a bot binding
type Wallet struct {
	WalletID string
	Address  string
}
