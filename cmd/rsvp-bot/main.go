package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/bot"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/handler"
	"wedding-rsvp/internal/store"
	"wedding-rsvp/internal/whatsapp"
)

func main() {
	// .env is optional; production deployments set real env vars.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	guestStore, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize guest store")
	}
	defer closeStore()

	sender := whatsapp.NewClient(cfg.WhatsApp.PhoneID, cfg.WhatsApp.Token, log)

	rsvpBot := bot.New(guestStore, sender, &bot.Config{
		InvitationTemplate: cfg.Campaign.InvitationTemplate,
		ReminderTemplate:   cfg.Campaign.ReminderTemplate,
		InvitationImageURL: cfg.Campaign.InvitationImageURL,
		GroupInviteLink:    cfg.Campaign.GroupInviteLink,
		DateAndVenue:       cfg.Campaign.DateAndVenue,
	}, log)

	webhook := handler.NewWebhook(rsvpBot, guestStore, &handler.Config{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		AppSecret:   cfg.WhatsApp.AppSecret,
	}, log)

	router := mux.NewRouter()
	webhook.Register(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("RSVP bot listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

// buildStore constructs the configured guest store backend and returns a
// cleanup function.
func buildStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.GuestStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := store.NewSheetStore(ctx, cfg.Store.CredentialsFile, cfg.Store.SpreadsheetID, cfg.Store.Worksheet, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}
