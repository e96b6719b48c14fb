// Package bot handles the Telegram bot side: the /start greeting and Stars
// payments for premium.
package bot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/payments"
	"github.com/oggyb/sloi/internal/repository"
	"github.com/oggyb/sloi/internal/service/premium"
)

const (
	welcomeText   = "Добро пожаловать в Sloi! 🖤\n\nНажми кнопку ниже, чтобы начать искать пару и знакомиться."
	openAppButton = "🔥 Открыть Sloi"
	paidUntilText = "⭐️ Premium активирован до %s. Спасибо!"
	paidText      = "⭐️ Premium активирован навсегда. Спасибо!"
	checkoutError = "Не удалось проверить платёж, попробуйте ещё раз."
)

// Bot registers update handlers on a telebot instance.
type Bot struct {
	appCtx *app.AppContext
	tb     *tele.Bot
	users  *repository.UserRepository
	gate   *premium.Gate
}

// New attaches handlers to tb.
func New(appCtx *app.AppContext, tb *tele.Bot) *Bot {
	b := &Bot{
		appCtx: appCtx,
		tb:     tb,
		users:  repository.NewUserRepository(appCtx.DB),
		gate:   premium.NewGate(appCtx),
	}
	tb.Handle("/start", b.onStart)
	tb.Handle(tele.OnCheckout, b.onCheckout)
	tb.Handle(tele.OnPayment, b.onPayment)
	return b
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	go b.tb.Start()
	b.appCtx.Logger.Info("telegram bot polling", "username", b.tb.Me.Username)
	<-ctx.Done()
	b.tb.Stop()
	b.appCtx.Logger.Info("telegram bot stopped")
}

func (b *Bot) onStart(c tele.Context) error {
	var opts []interface{}
	if url := b.appCtx.Config.Telegram.WebAppURL; url != "" {
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(markup.WebApp(openAppButton, &tele.WebApp{URL: url})))
		opts = append(opts, markup)
	}
	return c.Send(welcomeText, opts...)
}

// onCheckout approves a pre-checkout query only for our own payloads.
func (b *Bot) onCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	log := b.appCtx.Logger.With("query_id", q.ID, "payload", q.Payload)

	p, err := payments.ParsePayload(q.Payload)
	if err != nil || q.Currency != payments.Currency {
		log.Warn("pre-checkout rejected", "currency", q.Currency)
		return c.Accept(checkoutError)
	}
	if _, err := b.users.GetByID(context.Background(), p.UserID); err != nil {
		log.Warn("pre-checkout for unknown user", "err", err)
		return c.Accept(checkoutError)
	}
	return c.Accept()
}

// onPayment extends premium after a successful Stars payment.
func (b *Bot) onPayment(c tele.Context) error {
	pay := c.Message().Payment
	log := b.appCtx.Logger.With("charge_id", pay.TelegramChargeID, "payload", pay.Payload)

	p, err := payments.ParsePayload(pay.Payload)
	if err != nil {
		log.Error("payment with unknown payload", "err", err)
		return nil
	}

	u, err := b.gate.GrantOrExtend(context.Background(), p.UserID, p.Days)
	if err != nil {
		log.Error("premium grant after payment failed", "user_id", p.UserID, "err", err)
		return err
	}
	log.Info("premium purchased", "user_id", u.ID, "stars", pay.Total, "days", p.Days)

	if u.PremiumExpiresAt == nil || premium.IsUnlimited(u.PremiumExpiresAt) {
		return c.Send(paidText)
	}
	return c.Send(fmt.Sprintf(paidUntilText, u.PremiumExpiresAt.In(b.appCtx.Location).Format("02.01.2006")))
}
