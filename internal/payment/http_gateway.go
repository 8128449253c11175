package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/money"
)

// HTTPGateway talks to the live payment provider's REST API.
type HTTPGateway struct {
	client *resty.Client
}

type chargeBody struct {
	Reference   string `json:"reference"`
	Amount      string `json:"amount"`
	PaymentMode string `json:"paymentMode"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

type chargeReply struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewHTTPGateway builds a resty client bound to cfg.BaseURL.
func NewHTTPGateway(cfg config.PaymentConfig) *HTTPGateway {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return &HTTPGateway{client: c}
}

func (g *HTTPGateway) Name() string { return config.PaymentLive }

// Charge posts the attempt to /charges.  A 4xx answer is a rejection and
// comes back as StatusFailed with the provider's message; transport errors
// and 5xx answers are returned as errors.
func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	var (
		ok  chargeReply
		bad chargeReply
	)
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.TransactionRef).
		SetBody(chargeBody{
			Reference:   req.TransactionRef,
			Amount:      money.FromCents(req.AmountCents).StringFixed(2),
			PaymentMode: req.PaymentMode,
			Country:     req.Country,
			Phone:       req.Phone,
			Email:       req.Email,
		}).
		SetResult(&ok).
		SetError(&bad).
		Post("/charges")
	if err != nil {
		return ChargeResult{}, fmt.Errorf("payment gateway: %w", err)
	}
	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return ChargeResult{}, fmt.Errorf("payment gateway: status %d", resp.StatusCode())
	case resp.IsError():
		msg := bad.Message
		if msg == "" {
			msg = fmt.Sprintf("rejected with status %d", resp.StatusCode())
		}
		return ChargeResult{Status: StatusFailed, GatewayRef: bad.ID, Message: msg}, nil
	}
	return ChargeResult{Status: NormalizeStatus(ok.Status), GatewayRef: ok.ID, Message: ok.Message}, nil
}
