package cli

import (
	"github.com/felixgeelhaar/subledger/internal/ledger/application"
	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
)

// App holds the CLI application dependencies.
type App struct {
	// Ledger is the subscription ledger service.
	Ledger *application.Service

	// DefaultCaller is the account commands act as when --as is not
	// given. Configured per environment, usually the ledger owner.
	DefaultCaller domain.Account
}

// NewApp creates a new CLI application.
func NewApp(ledger *application.Service, defaultCaller domain.Account) *App {
	return &App{
		Ledger:        ledger,
		DefaultCaller: defaultCaller,
	}
}

// Caller resolves the account a command acts as: the --as flag when
// given, the configured default otherwise.
func (a *App) Caller() domain.Account {
	if asAccount != "" {
		return domain.Account(asAccount)
	}
	return a.DefaultCaller
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
