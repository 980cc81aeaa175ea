package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/zktoken/zktoken-core/types"
)

// StatusResponse is the payload of the status endpoint.
type StatusResponse struct {
	TreeRoot  types.HexBytes `json:"treeRoot"`
	TreeSize  uint32         `json:"treeSize"`
	LastBlock uint64         `json:"lastBlock"`
}

// BalanceResponse is the payload of the balance endpoint.
type BalanceResponse struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
	Unspent int    `json:"unspent"`
}

// status reports the tree mirror state and the scan cursor.
func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &StatusResponse{
		TreeRoot:  a.engine.Tree().Root().Bytes(),
		TreeSize:  a.engine.Tree().Size(),
		LastBlock: a.engine.LastBlock(),
	})
}

// balance reports the unspent balance of one token.
func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	tokenHex := chi.URLParam(r, TokenURLParam)
	if !common.IsHexAddress(tokenHex) {
		ErrMalformedToken.Write(w)
		return
	}
	token := common.HexToAddress(tokenHex)
	httpWriteJSON(w, &BalanceResponse{
		Token:   token.Hex(),
		Balance: a.engine.Notes().Balance(token).String(),
		Unspent: len(a.engine.Notes().Unspent(token)),
	})
}
