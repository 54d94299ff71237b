package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wacka-accessories/wacka-backend/api/responses"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
)

const (
	maxCallbackBytes = 64 << 10
	processTimeout   = 30 * time.Second
)

// CallbackHandler reconciles one raw gateway callback.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, raw []byte) mpesa.Ack
}

// MpesaCallback answers every delivery with HTTP 200 and the gateway ack so
// the provider never retries on our processing errors.
func MpesaCallback(svc CallbackHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "webhook", "mpesa")
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "mpesa.callback.read_failed", err)
			}
			responses.WriteRaw(w, http.StatusOK, mpesa.Accepted)
			return
		}

		responses.WriteRaw(w, http.StatusOK, handle(ctx, svc, logg, raw))
	}
}

// handle runs the reconciliation detached from the request and converts a
// panic into the Accepted ack.
func handle(ctx context.Context, svc CallbackHandler, logg *logger.Logger, raw []byte) (ack mpesa.Ack) {
	defer func() {
		if r := recover(); r != nil {
			if logg != nil {
				logg.Error(ctx, "mpesa.callback.panic", fmt.Errorf("panic: %v", r))
			}
			ack = mpesa.Accepted
		}
	}()

	// A provider disconnect must not abort a half-done reconciliation.
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), processTimeout)
	defer cancel()
	return svc.HandleCallback(procCtx, raw)
}
