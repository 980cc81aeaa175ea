package api

const (
	// PingEndpoint is the endpoint for checking the API status.
	PingEndpoint = "/ping"
	// StatusEndpoint reports the tree mirror state and scan cursor.
	StatusEndpoint = "/status"
	// TokenURLParam is the URL parameter carrying a token address.
	TokenURLParam = "token"
	// BalanceEndpoint reports the unspent balance of one token.
	BalanceEndpoint = "/balance/{" + TokenURLParam + "}"
)
