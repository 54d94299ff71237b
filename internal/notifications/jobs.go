package notifications

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
)

// Mailer is the delivery surface jobs depend on.
type Mailer interface {
	mailer.Sender
	AdminEmail() string
	SupportEmail() string
}

// LowStockReader lists products at or below their threshold.
type LowStockReader interface {
	LowStockLines(ctx context.Context) ([]mailer.LowStockLine, error)
}

// Jobs builds dispatcher jobs around the mailer.
type Jobs struct {
	mail  Mailer
	stock LowStockReader
}

// NewJobs wires the job builders.
func NewJobs(mail Mailer, stock LowStockReader) *Jobs {
	return &Jobs{mail: mail, stock: stock}
}

// OrderConfirmation mails the customer receipt and the admin copy.
func (j *Jobs) OrderConfirmation(data mailer.OrderEmail) Job {
	return Job{Kind: JobOrderConfirmation, Run: func(ctx context.Context) error {
		if data.SupportEmail == "" {
			data.SupportEmail = j.mail.SupportEmail()
		}
		var errs error
		if to := strings.TrimSpace(data.CustomerEmail); to != "" {
			errs = multierr.Append(errs, j.send(ctx, func() (mailer.Message, error) {
				return mailer.OrderConfirmation(to, data)
			}))
		}
		if admin := j.mail.AdminEmail(); admin != "" {
			errs = multierr.Append(errs, j.send(ctx, func() (mailer.Message, error) {
				return mailer.AdminNewOrder(admin, data)
			}))
		}
		return errs
	}}
}

// PaymentSuccess mails the payment receipt to the customer.
func (j *Jobs) PaymentSuccess(to string, data mailer.PaymentEmail) Job {
	return Job{Kind: JobPaymentSuccess, Run: func(ctx context.Context) error {
		if strings.TrimSpace(to) == "" {
			return nil
		}
		return j.send(ctx, func() (mailer.Message, error) {
			return mailer.PaymentReceived(to, data)
		})
	}}
}

// OrderStatus mails a status change to the customer.
func (j *Jobs) OrderStatus(data mailer.OrderEmail) Job {
	return Job{Kind: JobOrderStatus, Run: func(ctx context.Context) error {
		to := strings.TrimSpace(data.CustomerEmail)
		if to == "" {
			return nil
		}
		if data.SupportEmail == "" {
			data.SupportEmail = j.mail.SupportEmail()
		}
		return j.send(ctx, func() (mailer.Message, error) {
			return mailer.StatusChanged(to, data)
		})
	}}
}

// LowStockCheck mails the admin one alert when anything is at or below threshold.
func (j *Jobs) LowStockCheck() Job {
	return Job{Kind: JobLowStockCheck, Run: func(ctx context.Context) error {
		_, err := j.SendLowStockAlert(ctx)
		return err
	}}
}

// SendLowStockAlert reports how many products were listed in the alert.
func (j *Jobs) SendLowStockAlert(ctx context.Context) (int, error) {
	if j.stock == nil {
		return 0, errors.New("low stock reader not configured")
	}
	lines, err := j.stock.LowStockLines(ctx)
	if err != nil {
		return 0, err
	}
	admin := j.mail.AdminEmail()
	if len(lines) == 0 || admin == "" {
		return 0, nil
	}
	err = j.send(ctx, func() (mailer.Message, error) {
		return mailer.LowStockAlert(admin, lines)
	})
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// send treats a missing SMTP configuration as a skipped delivery.
func (j *Jobs) send(ctx context.Context, build func() (mailer.Message, error)) error {
	msg, err := build()
	if err != nil {
		return err
	}
	if err := j.mail.Send(ctx, msg); err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
		return err
	}
	return nil
}
