package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ResultCodeSuccess is the stkCallback ResultCode of an authorised payment.
const ResultCodeSuccess = 0

// ErrMalformedCallback wraps every decode failure.
var ErrMalformedCallback = errors.New("malformed mpesa callback")

// Callback is the decoded Body.stkCallback object.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          map[string]any
}

type callbackEnvelope struct {
	Body struct {
		STKCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.Number     `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *callbackMetaIn `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type callbackMetaIn struct {
	Item []struct {
		Name  string `json:"Name"`
		Value any    `json:"Value"`
	} `json:"Item"`
}

// ParseCallback decodes a raw callback body.
func ParseCallback(raw []byte) (*Callback, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env callbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	in := env.Body.STKCallback
	if in == nil {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}
	if strings.TrimSpace(in.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	code, err := in.ResultCode.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: ResultCode %q", ErrMalformedCallback, in.ResultCode.String())
	}

	cb := &Callback{
		MerchantRequestID: in.MerchantRequestID,
		CheckoutRequestID: in.CheckoutRequestID,
		ResultCode:        int(code),
		ResultDesc:        in.ResultDesc,
		Metadata:          map[string]any{},
	}
	if in.CallbackMetadata != nil {
		for _, item := range in.CallbackMetadata.Item {
			cb.Metadata[item.Name] = item.Value
		}
	}
	return cb, nil
}

// Succeeded reports whether the customer authorised the payment.
func (c *Callback) Succeeded() bool {
	return c.ResultCode == ResultCodeSuccess
}

// Receipt returns the MpesaReceiptNumber metadata item, if any.
func (c *Callback) Receipt() string {
	v, ok := c.Metadata["MpesaReceiptNumber"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Ack is the body the gateway expects back, whatever happened internally.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Accepted is the only acknowledgement this service ever sends.
var Accepted = Ack{ResultCode: 0, ResultDesc: "Accepted"}
