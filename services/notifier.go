package services

import (
	"context"
	"errors"
	"fmt"

	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/realtime"
	"go-storefront/repository"
	"go-storefront/utils"
)

// OrderPublisher receives order events for the admin live feed
type OrderPublisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, realtime.Event) error { return nil }

var statusEmails = map[models.OrderStatus]struct {
	template string
	subject  string
}{
	models.StatusApproved:   {utils.TemplateApproved, "Your order is confirmed!"},
	models.StatusDispatched: {utils.TemplateDispatched, "Your order has been shipped!"},
	models.StatusDelivered:  {utils.TemplateDelivered, "How was your order?"},
	models.StatusRejected:   {utils.TemplateRejected, "Your order was cancelled"},
	models.StatusReturned:   {utils.TemplateReturned, "Your order was returned"},
}

// Notifier renders and sends transactional email
type Notifier struct {
	mailer   utils.Mailer
	admins   repository.AdminRepository
	idPrefix string
	log      *logger.Logger
}

func NewNotifier(mailer utils.Mailer, admins repository.AdminRepository, orderIDPrefix string, log *logger.Logger) *Notifier {
	return &Notifier{mailer: mailer, admins: admins, idPrefix: orderIDPrefix, log: log.WithComponent("notifier")}
}

// DisplayID is the order id shown to people
func (n *Notifier) DisplayID(o *models.Order) string {
	return n.idPrefix + o.ID.Hex()
}

func (n *Notifier) orderData(o *models.Order) utils.EmailData {
	lines := make([]utils.EmailLine, 0, len(o.Cart))
	for _, l := range o.Cart {
		lines = append(lines, utils.EmailLine{Name: l.Name, Quantity: l.Quantity, Price: l.LineTotal()})
	}
	d := o.UserDetails
	return utils.EmailData{
		CustomerName:   d.Name,
		CustomerEmail:  d.Email,
		Phone:          d.Phone1,
		Address:        d.Address,
		City:           d.City,
		Province:       d.Province,
		PaymentMethod:  d.PaymentMethod,
		OrderID:        n.DisplayID(o),
		Lines:          lines,
		Subtotal:       o.Subtotal,
		Discount:       o.Discount,
		DeliveryCharge: o.DeliveryCharge,
		Total:          o.Total,
		Reason:         o.AdminComment,
	}
}

// NotifyAdminsNewOrder emails every registered admin. One failed recipient does not stop the others.
func (n *Notifier) NotifyAdminsNewOrder(ctx context.Context, o *models.Order) error {
	admins, err := n.admins.List(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}

	data := n.orderData(o)
	subject := "New order received: " + data.OrderID
	var errs []error
	for _, a := range admins {
		if err := n.send(ctx, a.Email, subject, utils.TemplateNewOrderAdmin, data); err != nil {
			n.log.Warn("Admin order email failed", "admin", a.Email, "order_id", o.ID.Hex(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyStatus sends the customer email for the order's current status.
// Orders without a customer name and email are skipped.
func (n *Notifier) NotifyStatus(ctx context.Context, o *models.Order, links []utils.ReviewLink) error {
	if o.UserDetails.Email == "" || o.UserDetails.Name == "" {
		n.log.Debug("Skipping status email, no customer contact", "order_id", o.ID.Hex())
		return nil
	}
	tmpl, ok := statusEmails[o.Status]
	if !ok {
		return nil
	}
	data := n.orderData(o)
	data.ReviewLinks = links
	return n.send(ctx, o.UserDetails.Email, tmpl.subject, tmpl.template, data)
}

// Announce sends an admin announcement to one recipient
func (n *Notifier) Announce(ctx context.Context, to, subject, message string) error {
	return n.send(ctx, to, subject, utils.TemplateAnnouncement, utils.EmailData{Subject: subject, Message: message})
}

func (n *Notifier) send(ctx context.Context, to, subject, template string, data utils.EmailData) error {
	html, err := utils.RenderEmail(template, data)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, utils.Message{To: to, Subject: subject, HTML: html})
}
