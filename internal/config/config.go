package config

import (
	"fmt"
	"os"
)

// Store backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	WhatsApp WhatsAppConfig
	Store    StoreConfig
	Campaign CampaignConfig
}

// WhatsAppConfig holds the Cloud API credentials and webhook settings.
type WhatsAppConfig struct {
	PhoneID     string
	Token       string
	VerifyToken string
	AppSecret   string
}

// StoreConfig selects and parameterizes the guest store backend.
type StoreConfig struct {
	Backend         string
	SpreadsheetID   string
	Worksheet       string
	CredentialsFile string
	SQLitePath      string
}

// CampaignConfig holds outbound message content settings. These shape what
// guests see; they never affect routing or state logic.
type CampaignConfig struct {
	InvitationTemplate string
	ReminderTemplate   string
	InvitationImageURL string
	GroupInviteLink    string
	DateAndVenue       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		WhatsApp: WhatsAppConfig{
			PhoneID:     os.Getenv("WABA_PHONE_ID"),
			Token:       os.Getenv("WABA_TOKEN"),
			VerifyToken: os.Getenv("WABA_WEBHOOK_VERIFY"),
			AppSecret:   os.Getenv("WABA_APP_SECRET"),
		},
		Store: StoreConfig{
			Backend:         getEnv("GUESTS_BACKEND", BackendSheets),
			SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
			Worksheet:       getEnv("WORKSHEET_NAME", "guests"),
			CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
			SQLitePath:      getEnv("SQLITE_PATH", "data/guests.db"),
		},
		Campaign: CampaignConfig{
			InvitationTemplate: getEnv("INVITATION_TEMPLATE_NAME", "rsvp_invitation"),
			ReminderTemplate:   getEnv("REMINDER_TEMPLATE_NAME", "rsvp_reminder"),
			InvitationImageURL: os.Getenv("INVITATION_IMAGE_URL"),
			GroupInviteLink:    os.Getenv("GROUP_INVITE_LINK"),
			DateAndVenue:       os.Getenv("INVITATION_DATE_AND_VENUE"),
		},
	}

	if cfg.WhatsApp.PhoneID == "" {
		return nil, fmt.Errorf("WABA_PHONE_ID is required")
	}
	if cfg.WhatsApp.Token == "" {
		return nil, fmt.Errorf("WABA_TOKEN is required")
	}
	if cfg.WhatsApp.VerifyToken == "" {
		return nil, fmt.Errorf("WABA_WEBHOOK_VERIFY is required")
	}

	switch cfg.Store.Backend {
	case BackendSheets:
		if cfg.Store.SpreadsheetID == "" {
			return nil, fmt.Errorf("SPREADSHEET_ID is required with the sheets backend")
		}
		if cfg.Store.CredentialsFile == "" {
			return nil, fmt.Errorf("GOOGLE_CREDENTIALS_FILE is required with the sheets backend")
		}
	case BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown GUESTS_BACKEND %q", cfg.Store.Backend)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
