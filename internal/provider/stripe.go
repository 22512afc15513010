package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/transfer"
)

// StripeCardCharger implements CardCharger against the Stripe Charges API.
type StripeCardCharger struct {
	apiKey string
}

var _ CardCharger = (*StripeCardCharger)(nil)

func NewStripeCardCharger(apiKey string) *StripeCardCharger {
	stripe.Key = apiKey
	return &StripeCardCharger{apiKey: apiKey}
}

// Charge creates a one-off Stripe charge against the given card token.
// Declines come back from charge.New as its error value (a *stripe.Error);
// that error and an unpaid charge are both folded into a non-ok result
// rather than propagated as an infrastructure error (spec §4.5).
func (c *StripeCardCharger) Charge(ctx context.Context, clientID string, amountCents int64, opaqueToken string) (CardChargeResult, error) {
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Source:      stripe.String(opaqueToken),
		Description: stripe.String(fmt.Sprintf("beancounter credit top-up for %s", clientID)),
	}
	params.Params.Context = ctx
	params.AddMetadata("client_id", clientID)

	ch, err := charge.New(params)
	if err != nil {
		return CardChargeResult{OK: false, Message: err.Error()}, nil
	}

	raw, _ := json.Marshal(ch)
	if !ch.Paid {
		return CardChargeResult{OK: false, APIResponse: string(raw), Message: "charge not paid"}, nil
	}

	return CardChargeResult{OK: true, APIResponse: string(raw)}, nil
}

// StripeConnectTransferer implements ConnectTransfers against the Stripe
// Connect Transfers API.
type StripeConnectTransferer struct {
	apiKey string
}

var _ ConnectTransfers = (*StripeConnectTransferer)(nil)

func NewStripeConnectTransferer(apiKey string) *StripeConnectTransferer {
	stripe.Key = apiKey
	return &StripeConnectTransferer{apiKey: apiKey}
}

// Transfer moves amountCents to the connected account identified by
// stripeUserID (spec §4.5). A declined or errored transfer comes back as
// a non-ok result; the caller is responsible for the compensating
// add_credits posting.
func (t *StripeConnectTransferer) Transfer(ctx context.Context, stripeUserID string, amountCents int64) (TransferResult, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(stripeUserID),
	}
	params.Params.Context = ctx

	tr, err := transfer.New(params)
	if err != nil {
		return TransferResult{OK: false}, nil
	}

	raw, _ := json.Marshal(tr)
	return TransferResult{OK: true, ProviderTransferID: tr.ID, RawResponse: raw}, nil
}
