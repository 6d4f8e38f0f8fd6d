package http

import "net/http"

// InitParams are the chain parameters a client needs before it can build and
// sign transactions for this platform.
type InitParams struct {
	ChainID              string `json:"chain_id"`
	NodeURL              string `json:"node_url"`
	AppName              string `json:"app_name"`
	PlatformContract     string `json:"platform_contract"`
	AtomicAssetsContract string `json:"atomic_assets_contract"`
	TokenContract        string `json:"token_contract"`
	TokenSymbol          string `json:"token_symbol"`
	TokenPrecision       int32  `json:"token_precision"`
}

// HandleInit returns an HTTP handler serving params.
func HandleInit(params InitParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, params)
	}
}
