package rpc

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// clientIDSchema is shared by every request carrying a client_id, since the
// wire contract requires it to be a UUID string (spec §6).
const clientIDSchema = `{"type": "string", "format": "uuid", "minLength": 1}`

var requestSchemas = map[string]string{
	"GetBalance": `{
		"type": "object",
		"required": ["client_id"],
		"properties": {"client_id": ` + clientIDSchema + `}
	}`,
	"GetTransactions": `{
		"type": "object",
		"required": ["client_id"],
		"properties": {"client_id": ` + clientIDSchema + `}
	}`,
	"AddPayment": `{
		"type": "object",
		"required": ["client_id_from", "amount_cents", "message_hash"],
		"properties": {
			"client_id_from": ` + clientIDSchema + `,
			"amount_cents": {"type": "integer"},
			"message_hash": {"type": "string", "minLength": 1}
		}
	}`,
	"SettlePayment": `{
		"type": "object",
		"required": ["client_id", "message_hash"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"message_hash": {"type": "string", "minLength": 1}
		}
	}`,
	"AddCredits": `{
		"type": "object",
		"required": ["client_id", "amount_cents"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"amount_cents": {"type": "integer"}
		}
	}`,
	"AddPromo": `{
		"type": "object",
		"required": ["client_id", "amount_cents"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"amount_cents": {"type": "integer"}
		}
	}`,
	"ConnectPayout": `{
		"type": "object",
		"required": ["client_id", "amount_cents"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"amount_cents": {"type": "integer"}
		}
	}`,
	"StripeCharge": `{
		"type": "object",
		"required": ["client_id", "amount_cents", "opaque_token"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"amount_cents": {"type": "integer"},
			"opaque_token": {"type": "string", "minLength": 1}
		}
	}`,
	"CompleteConnectOauth": `{
		"type": "object",
		"required": ["client_id", "code", "state"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"code": {"type": "string", "minLength": 1},
			"state": {"type": "string", "minLength": 1}
		}
	}`,
	"GetConnectAccount": `{
		"type": "object",
		"required": ["client_id"],
		"properties": {"client_id": ` + clientIDSchema + `}
	}`,
	"UpdateConnectAccountPrefs": `{
		"type": "object",
		"required": ["client_id"],
		"properties": {
			"client_id": ` + clientIDSchema + `,
			"automatic_payout_threshold_cents": {"type": "integer", "minimum": 0}
		}
	}`,
	"GetConnectPayoutHistory": `{
		"type": "object",
		"required": ["client_id"],
		"properties": {"client_id": ` + clientIDSchema + `}
	}`,
}

// validate checks raw request JSON against the named RPC's schema before
// the body is unmarshaled into its Go struct, matching the facade-level
// input validation called for by spec §4.5 ("validates inputs").
func validate(method string, body []byte) error {
	schema, ok := requestSchemas[method]
	if !ok {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(string(body)),
	)
	if err != nil {
		return fmt.Errorf("rpc: validating %s request: %w", method, err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("rpc: %s request invalid: %s", method, strings.Join(errs, "; "))
	}
	return nil
}
