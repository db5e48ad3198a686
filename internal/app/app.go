package app

import (
	"context"
	"fmt"
	"syscall"

	"github.com/mshaw/timevault/internal/config"
	"github.com/mshaw/timevault/internal/crypto"
	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/repository"
	"github.com/mshaw/timevault/internal/service"
	"golang.org/x/term"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB

	// Repositories
	ClientRepo   repository.ClientRepository
	RateRepo     repository.BillingRateRepository
	EntryRepo    repository.TimeEntryRepository
	TicketRepo   repository.TicketRepository
	InvoiceRepo  repository.InvoiceRepository
	SettingsRepo repository.SettingsRepository
	TimerRepo    repository.TimerRepository

	// Services
	ClientService  service.ClientService
	EntryService   service.EntryService
	TicketService  service.TicketService
	InvoiceService service.InvoiceService
	TimerService   service.TimerService
	ReportService  service.ReportService
}

// New creates a new App instance, initializing all dependencies
// It handles:
// 1. Loading config
// 2. Getting encryption key from keyring
// 3. Opening database
// 4. Running migrations
// 5. Creating repositories
// 6. Creating services
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates an App with a provided config (useful for testing)
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	// Get keyring for secure password storage
	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err != nil {
		// No key exists, prompt user to set one
		fmt.Println("Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	// Open the database with encryption
	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create repositories
	clientRepo := repository.NewClientRepo(database)
	rateRepo := repository.NewRateRepo(database)
	entryRepo := repository.NewEntryRepo(database)
	ticketRepo := repository.NewTicketRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)
	settingsRepo := repository.NewSettingsRepo(database)
	timerRepo := repository.NewTimerRepo(database)

	// Create services with their dependencies
	clientService := service.NewClientService(clientRepo, rateRepo)
	entryService := service.NewEntryService(entryRepo, clientRepo, rateRepo)
	ticketService := service.NewTicketService(ticketRepo, clientRepo)
	invoiceService := service.NewInvoiceService(
		invoiceRepo, entryRepo, clientRepo, rateRepo, ticketRepo, settingsRepo,
		cfg.Invoice.AllowRateless,
	)
	timerService := service.NewTimerService(timerRepo, entryRepo, clientRepo, rateRepo)
	reportService := service.NewReportService(entryRepo, invoiceRepo, clientRepo, rateRepo, settingsRepo)

	return &App{
		Config:         cfg,
		DB:             database,
		ClientRepo:     clientRepo,
		RateRepo:       rateRepo,
		EntryRepo:      entryRepo,
		TicketRepo:     ticketRepo,
		InvoiceRepo:    invoiceRepo,
		SettingsRepo:   settingsRepo,
		TimerRepo:      timerRepo,
		ClientService:  clientService,
		EntryService:   entryService,
		TicketService:  ticketService,
		InvoiceService: invoiceService,
		TimerService:   timerService,
		ReportService:  reportService,
	}, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// promptForPassword prompts user for a new database password (first run)
// This should be called when keyring has no stored key
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your time tracking data will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// RecoverTimer checks for an existing timer on startup
// This is useful for crash recovery to let the user know about an active timer
func (a *App) RecoverTimer(ctx context.Context) error {
	return a.TimerService.RecoverFromCrash(ctx)
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(config.DefaultConfigPath())
}
