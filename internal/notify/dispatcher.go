// Package notify tells the business and the customer about new inquiries.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/bluecheck/inquiries/internal/mailer"
	"github.com/bluecheck/inquiries/internal/metrics"
	"github.com/bluecheck/inquiries/internal/models"
)

// Template names rendered by the dispatcher.
const (
	TemplateBusinessAlert        = "business_alert"
	TemplateCustomerConfirmation = "customer_confirmation"
)

// Config describes the business side of notifications.
type Config struct {
	BusinessEmail   string
	BusinessName    string
	BusinessPhone   string
	ResponseWindow  time.Duration
	SlackWebhookURL string
}

// Report says which notifications went out.
type Report struct {
	BusinessSent bool
	CustomerSent bool
	SlackSent    bool
}

// Dispatcher renders and sends the notifications for a new inquiry. All
// transport calls run on the shared mail pool.
type Dispatcher struct {
	cfg      Config
	sender   mailer.Sender
	pool     *mailer.Pool
	renderer *mailer.Renderer
	logger   *slog.Logger
	wg       sync.WaitGroup

	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// New creates a Dispatcher.
func New(cfg Config, sender mailer.Sender, pool *mailer.Pool, renderer *mailer.Renderer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:         cfg,
		sender:      sender,
		pool:        pool,
		renderer:    renderer,
		logger:      logger,
		postWebhook: slack.PostWebhookContext,
	}
}

// NotifyNewInquiry sends notifications in the background. The caller's
// cancellation does not abort delivery; outcomes are only logged.
func (d *Dispatcher) NotifyNewInquiry(ctx context.Context, inq models.Inquiry) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		r := d.Dispatch(ctx, inq)
		d.logger.Info("inquiry notifications finished",
			slog.String("inquiry_id", inq.ID),
			slog.Bool("business_sent", r.BusinessSent),
			slog.Bool("customer_sent", r.CustomerSent),
			slog.Bool("slack_sent", r.SlackSent))
	}()
}

// Wait blocks until every background notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch sends the business alert and the customer confirmation (plus
// the Slack mirror when configured) and waits for all of them. Failures
// are logged and reported, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, inq models.Inquiry) Report {
	data := d.templateData(inq)

	var pending []func(*Report)

	if msg, ok := d.render(TemplateBusinessAlert, data, inq.ID); ok {
		msg.To = d.cfg.BusinessEmail
		msg.ReplyTo = inq.Email
		ch := d.pool.Submit(ctx, func(ctx context.Context) error { return d.sender.Send(ctx, msg) })
		pending = append(pending, func(r *Report) {
			r.BusinessSent = d.await(ch, TemplateBusinessAlert, inq.ID)
		})

		if d.cfg.SlackWebhookURL != "" {
			text := msg.Subject + "\n" + msg.Text
			sch := d.pool.Submit(ctx, func(ctx context.Context) error {
				return d.postWebhook(ctx, d.cfg.SlackWebhookURL, &slack.WebhookMessage{Text: text})
			})
			pending = append(pending, func(r *Report) {
				r.SlackSent = d.await(sch, "slack_alert", inq.ID)
			})
		}
	}

	if msg, ok := d.render(TemplateCustomerConfirmation, data, inq.ID); ok {
		msg.To = inq.Email
		msg.ReplyTo = d.cfg.BusinessEmail
		ch := d.pool.Submit(ctx, func(ctx context.Context) error { return d.sender.Send(ctx, msg) })
		pending = append(pending, func(r *Report) {
			r.CustomerSent = d.await(ch, TemplateCustomerConfirmation, inq.ID)
		})
	}

	var r Report
	for _, wait := range pending {
		wait(&r)
	}
	return r
}

func (d *Dispatcher) render(name string, data emailData, inquiryID string) (mailer.Message, bool) {
	msg, err := d.renderer.Render(name, data)
	if err != nil {
		d.logger.Error("render notification failed",
			slog.String("template", name),
			slog.String("inquiry_id", inquiryID),
			slog.String("error", err.Error()))
		metrics.RecordNotification(name, false)
		return mailer.Message{}, false
	}
	return msg, true
}

func (d *Dispatcher) await(ch <-chan error, kind, inquiryID string) bool {
	err := <-ch
	metrics.RecordNotification(kind, err == nil)
	if err != nil {
		d.logger.Error("notification failed",
			slog.String("kind", kind),
			slog.String("inquiry_id", inquiryID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

type emailData struct {
	BusinessName    string
	BusinessPhone   string
	ResponseWindow  string
	ID              string
	Name            string
	Email           string
	Phone           string
	PropertyAddress string
	InspectionType  string
	PreferredDate   string
	Message         string
	SubmittedAt     string
}

func (d *Dispatcher) templateData(inq models.Inquiry) emailData {
	data := emailData{
		BusinessName:    d.cfg.BusinessName,
		BusinessPhone:   d.cfg.BusinessPhone,
		ResponseWindow:  HumanizeWindow(d.cfg.ResponseWindow),
		ID:              inq.ID,
		Name:            inq.Name,
		Email:           inq.Email,
		Phone:           inq.Phone,
		PropertyAddress: inq.PropertyAddress,
		InspectionType:  inq.InspectionType.Label(),
		SubmittedAt:     inq.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if inq.PreferredDate != nil {
		data.PreferredDate = strings.TrimSpace(*inq.PreferredDate)
	}
	if inq.Message != nil {
		data.Message = strings.TrimSpace(*inq.Message)
	}
	return data
}

// HumanizeWindow renders a response window like "2 hours" or "30 minutes".
func HumanizeWindow(d time.Duration) string {
	switch {
	case d <= 0:
		return "one business day"
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
