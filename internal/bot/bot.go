// Package bot wires the Telegram surface: command routing, the enrollment
// conversation, and lunch prompt callbacks.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/handlers"
	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/keyboard"
	"github.com/lunchcrew/lunchbuddy-bot/internal/dispatch"
	errors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/idempotency"
	"github.com/lunchcrew/lunchbuddy-bot/internal/middleware"
	"github.com/lunchcrew/lunchbuddy-bot/internal/session"
	"github.com/lunchcrew/lunchbuddy-bot/internal/state"
	"github.com/lunchcrew/lunchbuddy-bot/internal/user"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
)

// Bot wraps telebot.Bot with application dependencies required for handling
// updates. Construction is two-phase: New establishes the Telegram session so
// the Gateway can be handed to the session manager, then RegisterHandlers
// wires the inbound routes once the manager exists.
type Bot struct {
	telebot     *telebot.Bot
	log         *slog.Logger
	cfg         config.Config
	fsm         state.StateMachine
	router      *Router
	dispatcher  *Dispatcher
	keyboard    *keyboard.Builder
	errHandler  *errors.Handler
	deduper     *idempotency.Deduper
	rateLimitMw *middleware.RateLimitMiddleware
}

// New builds a telegram bot instance configured according to the application
// settings.
func New(
	cfg config.Config,
	log *slog.Logger,
	fsm state.StateMachine,
	deduper *idempotency.Deduper,
	rateLimitMw *middleware.RateLimitMiddleware,
) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	dispatcher := NewDispatcher(fsm, log)

	b := &Bot{
		telebot:     tb,
		log:         log,
		cfg:         cfg,
		fsm:         fsm,
		router:      NewRouter(dispatcher, log),
		dispatcher:  dispatcher,
		keyboard:    keyboard.NewBuilder(log),
		errHandler:  errors.NewHandler(log, cfg.Sentry.Enabled),
		deduper:     deduper,
		rateLimitMw: rateLimitMw,
	}

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)

	return b, nil
}

// RegisterHandlers wires commands, conversation states, and callbacks. It
// must run before Start.
func (b *Bot) RegisterHandlers(
	users *user.Service,
	sessions *session.Manager,
	dispatcher *dispatch.Dispatcher,
) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.deduper, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(users, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler())
	b.router.RegisterCommand(CommandEnroll, handlers.NewEnrollHandler(b.fsm, b.log))
	b.router.RegisterCommand(CommandUnenroll, handlers.NewUnenrollHandler(users, b.log))
	b.router.RegisterCommand(CommandStatus, handlers.NewStatusHandler(users, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.fsm, b.log))
	b.router.RegisterCommand(CommandResubmit,
		handlers.NewResubmitHandler(dispatcher, b.cfg.Bot.OperatorChatID, b.log))

	b.dispatcher.RegisterStateHandler(state.StateEnrollName, handlers.NewNameStepHandler(b.fsm, b.log))
	b.dispatcher.RegisterStateHandler(state.StateEnrollEmail, handlers.NewEmailStepHandler(b.fsm, b.keyboard, b.log))
	b.dispatcher.RegisterStateHandler(state.StateEnrollDays,
		handlers.NewDaysStepHandler(b.fsm, b.keyboard, b.cfg.Lunch, b.log))

	b.router.RegisterCallback(keyboard.CallbackLunchYes+keyboard.CallbackDataSeparator,
		handlers.NewLunchReplyHandler(sessions, b.log))
	b.router.RegisterCallback(keyboard.CallbackLunchNo+keyboard.CallbackDataSeparator,
		handlers.NewLunchReplyHandler(sessions, b.log))
	b.router.RegisterCallback(keyboard.CallbackDiet+keyboard.CallbackDataSeparator,
		handlers.NewDietCallbackHandler(b.fsm, b.keyboard, b.cfg.Lunch, b.log))
	b.router.RegisterCallback(keyboard.CallbackDayToggle+keyboard.CallbackDataSeparator,
		handlers.NewDayToggleHandler(b.fsm, b.keyboard, b.cfg.Lunch, b.log))
	b.router.RegisterCallback(keyboard.CallbackDaysDone,
		handlers.NewDaysDoneHandler(b.fsm, users, b.log))
}

// Gateway returns the outbound delivery surface backed by this bot.
func (b *Bot) Gateway() *Gateway {
	return NewGateway(b.telebot, b.keyboard, b.log)
}

// OperatorNotifier returns the operator alert channel backed by this bot.
func (b *Bot) OperatorNotifier() *OperatorNotifier {
	return NewOperatorNotifier(b.telebot, b.cfg.Bot.OperatorChatID, b.log)
}

// Start runs the telegram bot event loop. It blocks until Stop is called.
func (b *Bot) Start() {
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such
// as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
