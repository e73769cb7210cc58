package payment

import "encoding/json"

type CreateResult struct {
	Authority   string `json:"authority"`
	RedirectURL string `json:"url"`
}

type VerifyResult struct {
	RefID    int64  `json:"ref_id"`
	CardHash string `json:"card_hash,omitempty"`
	CardPan  string `json:"card_pan,omitempty"`
	Fee      int64  `json:"fee,omitempty"`
}

// Provider result codes.
const (
	codeSuccess         = 100
	codeAlreadyVerified = 101
)

type requestEnvelope struct {
	Data   requestData     `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type requestData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	Fee       int64  `json:"fee"`
}

type verifyEnvelope struct {
	Data   verifyData      `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type verifyData struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	RefID    int64  `json:"ref_id"`
	CardHash string `json:"card_hash"`
	CardPan  string `json:"card_pan"`
	Fee      int64  `json:"fee"`
}
