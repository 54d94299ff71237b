// Package mpesa talks to the Safaricom Daraja API: OAuth client credentials,
// STK push (Lipa na M-Pesa Online) and the asynchronous result callback.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
)

const (
	tokenPath             = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath           = "/mpesa/stkpush/v1/processrequest"
	transactionType       = "CustomerPayBillOnline"
	timestampLayout       = "20060102150405"
	responseBodyReadLimit = 64 << 10
	tokenRefreshMargin    = time.Minute
	defaultTokenLifetime  = 55 * time.Minute
)

var errCredentialsRequired = errors.New("mpesa consumer key and secret are required")

// Gateway is the surface the payment service depends on.
type Gateway interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

// Client is a Daraja STK push client. Access tokens are cached until shortly
// before they expire.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	tracer         trace.Tracer
	now            func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.MpesaConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.ConsumerKey)
	secret := strings.TrimSpace(cfg.ConsumerSecret)
	if key == "" || secret == "" {
		return nil, errCredentialsRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:        cfg.Endpoint(),
		consumerKey:    key,
		consumerSecret: secret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		tracer:         otel.Tracer("wacka.mpesa"),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// STKPushRequest is the business input for a pay request.
type STKPushRequest struct {
	Phone       string
	Amount      int64
	Reference   string
	Description string
}

// STKPushResponse carries the gateway reply verbatim.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GatewayError reports a failed exchange with the provider.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString("mpesa ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": code %s", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Timestamp formats t the way Daraja expects (YYYYMMDDHHMMSS).
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// AccessToken returns a cached bearer token, fetching a new one when needed.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	ctx, span := c.tracer.Start(ctx, "mpesa.access_token")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", failSpan(span, &GatewayError{Op: "token", Err: err})
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	var out tokenResponse
	if err := c.do(req, "token", &out); err != nil {
		return "", failSpan(span, err)
	}
	if out.AccessToken == "" {
		return "", failSpan(span, &GatewayError{Op: "token", Message: "empty access token"})
	}

	lifetime := defaultTokenLifetime
	if secs, convErr := strconv.Atoi(strings.TrimSpace(out.ExpiresIn)); convErr == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}
	c.token = out.AccessToken
	c.tokenExpiry = now.Add(lifetime - tokenRefreshMargin)
	return c.token, nil
}

// STKPush asks the customer's handset to authorise a payment.
func (c *Client) STKPush(ctx context.Context, in STKPushRequest) (*STKPushResponse, error) {
	ctx, span := c.tracer.Start(ctx, "mpesa.stk_push", trace.WithAttributes(
		attribute.String("mpesa.reference", in.Reference),
		attribute.Int64("mpesa.amount", in.Amount),
	))
	defer span.End()

	if in.Amount <= 0 {
		return nil, failSpan(span, &GatewayError{Op: "stk_push", Message: "amount must be at least 1"})
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}

	ts := Timestamp(c.now())
	phone := NormalizePhone(in.Phone)
	body := stkPushBody{
		BusinessShortCode: c.shortcode,
		Password:          Password(c.shortcode, c.passkey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            in.Amount,
		PartyA:            phone,
		PartyB:            c.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  in.Reference,
		TransactionDesc:   in.Description,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, failSpan(span, &GatewayError{Op: "stk_push", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return nil, failSpan(span, &GatewayError{Op: "stk_push", Err: err})
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var out STKPushResponse
	if err := c.do(req, "stk_push", &out); err != nil {
		return nil, failSpan(span, err)
	}
	if out.ResponseCode != "0" {
		return nil, failSpan(span, &GatewayError{Op: "stk_push", Code: out.ResponseCode, Message: out.ResponseDescription})
	}
	if out.CheckoutRequestID == "" {
		return nil, failSpan(span, &GatewayError{Op: "stk_push", Message: "missing CheckoutRequestID"})
	}

	span.SetAttributes(attribute.String("mpesa.checkout_request_id", out.CheckoutRequestID))
	return &out, nil
}

type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.ErrorMessage
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Code: eb.ErrorCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
