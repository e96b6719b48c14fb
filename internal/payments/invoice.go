// Package payments sells premium for Telegram Stars.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/repository"
)

// Currency is the Telegram Stars currency code.
const Currency = "XTR"

const payloadPrefix = "premium"

var ErrBadPayload = errors.New("unrecognized invoice payload")

// Payload identifies what an invoice pays for: days of premium for a user.
type Payload struct {
	UserID string
	Days   int
}

// String encodes p as premium:<user id>:<days>.
func (p Payload) String() string {
	return fmt.Sprintf("%s:%s:%d", payloadPrefix, p.UserID, p.Days)
}

// ParsePayload decodes an invoice payload produced by Payload.String.
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] != payloadPrefix || parts[1] == "" {
		return Payload{}, ErrBadPayload
	}
	days, err := strconv.Atoi(parts[2])
	if err != nil || days <= 0 {
		return Payload{}, ErrBadPayload
	}
	return Payload{UserID: parts[1], Days: days}, nil
}

// LinkCreator creates invoice links. *tele.Bot implements it.
type LinkCreator interface {
	CreateInvoiceLink(i tele.Invoice) (string, error)
}

// Invoicer issues Stars invoices for premium.
type Invoicer struct {
	appCtx *app.AppContext
	links  LinkCreator
	users  *repository.UserRepository
}

// NewInvoicer creates an Invoicer. links may be nil when no bot is configured.
func NewInvoicer(appCtx *app.AppContext, links LinkCreator) *Invoicer {
	return &Invoicer{
		appCtx: appCtx,
		links:  links,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// CreateInvoice returns a payment link for one premium period for userID.
func (i *Invoicer) CreateInvoice(ctx context.Context, userID string) (string, error) {
	if i.links == nil {
		return "", svcErr.Internal("payments are not configured", nil)
	}
	u, err := i.users.GetByID(ctx, userID)
	if err != nil {
		return "", svcErr.Map(err)
	}

	limits := i.appCtx.Config.Limits
	payload := Payload{UserID: u.ID, Days: limits.PremiumGrantDays}
	link, err := i.links.CreateInvoiceLink(tele.Invoice{
		Title:       "Sloi Premium",
		Description: fmt.Sprintf("Безлимитные свайпы и список лайков на %d дней", limits.PremiumGrantDays),
		Payload:     payload.String(),
		Currency:    Currency,
		Prices:      []tele.Price{{Label: "Premium", Amount: limits.PremiumStars}},
	})
	if err != nil {
		logger.FromContext(ctx, i.appCtx.Logger).Error("invoice link failed", "user_id", u.ID, "err", err)
		return "", svcErr.Internal("could not create invoice", err)
	}
	return link, nil
}
