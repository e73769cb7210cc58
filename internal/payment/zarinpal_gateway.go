package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"arasta-be/internal/logger"
	"arasta-be/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	requestPath  = "/pg/v4/payment/request.json"
	verifyPath   = "/pg/v4/payment/verify.json"
	startPayPath = "/pg/StartPay/"
)

type zarinpalGateway struct {
	merchantID string
	baseURL    string
	client     *resty.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewZarinpalGateway builds the gateway client. Calls are bounded by a 15s
// timeout and go through a circuit breaker so a flapping provider doesn't
// pile up blocked checkouts.
func NewZarinpalGateway(merchantID, baseURL string) Gateway {
	if merchantID == "" {
		logger.L().Warn("Zarinpal merchant id is empty")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "zarinpal",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// A provider-level rejection means the provider answered; only
		// transport failures should trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || err == ErrAlreadyVerified || IsGatewayError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)

			logger.L().Info("circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues("zarinpal").Set(0)

	return &zarinpalGateway{
		merchantID: merchantID,
		baseURL:    baseURL,
		client:     client,
		breaker:    breaker,
	}
}

func (g *zarinpalGateway) CreateTransaction(
	ctx context.Context,
	amount float64,
	description, callbackURL string,
	metadata map[string]any,
) (*CreateResult, error) {

	log := logger.FromCtx(ctx).With(
		zap.Float64("amount", amount),
		zap.String("callback_url", callbackURL),
	)

	if metadata == nil {
		metadata = map[string]any{}
	}

	payload := map[string]any{
		"merchant_id":  g.merchantID,
		"amount":       int64(math.Round(amount)),
		"callback_url": callbackURL,
		"description":  description,
		"metadata":     metadata,
	}

	timer := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		var env requestEnvelope
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&env).
			SetError(&env).
			Post(requestPath)
		if err != nil {
			return nil, fmt.Errorf("payment request failed: %w", err)
		}

		if env.Data.Code != codeSuccess {
			return nil, &GatewayError{
				Code:    env.Data.Code,
				Message: env.Data.Message,
				Payload: rawOrStatus(env.Errors, resp.StatusCode()),
			}
		}

		return &env, nil
	})
	metrics.GatewayRequestDuration.WithLabelValues("create").Observe(time.Since(timer).Seconds())

	if err != nil {
		log.Error("payment transaction create failed", zap.Error(err))
		return nil, err
	}

	env := result.(*requestEnvelope)

	log.Info("payment transaction created",
		zap.String("authority", env.Data.Authority),
	)

	return &CreateResult{
		Authority:   env.Data.Authority,
		RedirectURL: g.baseURL + startPayPath + env.Data.Authority,
	}, nil
}

func (g *zarinpalGateway) VerifyTransaction(
	ctx context.Context,
	amount float64,
	authority string,
) (*VerifyResult, error) {

	log := logger.FromCtx(ctx).With(
		zap.Float64("amount", amount),
		zap.String("authority", authority),
	)

	payload := map[string]any{
		"merchant_id": g.merchantID,
		"amount":      int64(math.Round(amount)),
		"authority":   authority,
	}

	timer := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		var env verifyEnvelope
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&env).
			SetError(&env).
			Post(verifyPath)
		if err != nil {
			return nil, fmt.Errorf("payment verification failed: %w", err)
		}

		switch env.Data.Code {
		case codeSuccess:
			return &env, nil
		case codeAlreadyVerified:
			return nil, ErrAlreadyVerified
		default:
			return nil, &GatewayError{
				Code:    env.Data.Code,
				Message: env.Data.Message,
				Payload: rawOrStatus(env.Errors, resp.StatusCode()),
			}
		}
	})
	metrics.GatewayRequestDuration.WithLabelValues("verify").Observe(time.Since(timer).Seconds())

	if err != nil {
		if err == ErrAlreadyVerified {
			log.Info("payment already verified")
		} else {
			log.Error("payment verification failed", zap.Error(err))
		}
		return nil, err
	}

	env := result.(*verifyEnvelope)

	log.Info("payment verified",
		zap.Int64("ref_id", env.Data.RefID),
		zap.Int64("fee", env.Data.Fee),
	)

	return &VerifyResult{
		RefID:    env.Data.RefID,
		CardHash: env.Data.CardHash,
		CardPan:  env.Data.CardPan,
		Fee:      env.Data.Fee,
	}, nil
}

func rawOrStatus(raw json.RawMessage, status int) json.RawMessage {
	if len(raw) > 0 {
		return raw
	}
	return json.RawMessage(fmt.Sprintf(`{"http_status":%d}`, status))
}
