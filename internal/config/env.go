package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: the session password is prompted at runtime and stored in memory - use GetSessionPasswordBytes()
type Config struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	AppURL            string        `envconfig:"APP_URL" default:"https://nadiaradio.com"`
	RedirectBaseURL   string        `envconfig:"REDIRECT_BASE_URL" default:"http://127.0.0.1:8080"`
	WalletHost        string        `envconfig:"WALLET_HOST" default:"phantom.app"`
	UseUniversalLinks bool          `envconfig:"USE_UNIVERSAL_LINKS" default:"true"`
	Cluster           string        `envconfig:"CLUSTER" default:"mainnet-beta"`
	SolanaRPCURL      string        `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	APIBaseURL        string        `envconfig:"API_BASE_URL" default:"https://api.nadiaradio.com/v1/app"`
	StationWSURL      string        `envconfig:"STATION_WS_URL" default:"wss://www.nadiaradio.com/socket"`
	TipDestination    string        `envconfig:"TIP_DESTINATION" default:"2PN8XaGeHs6iyrjyuk66EjSXgWcsZ9PtSoaV1r1vhZYr"`
	SessionStore      string        `envconfig:"SESSION_STORE" default:"file"`
	SessionFilePath   string        `envconfig:"SESSION_FILE_PATH" default:"walletlink.cws"`
	ReceiptsDBPath    string        `envconfig:"RECEIPTS_DB_PATH" default:"walletlink.db"`
	ConnectTimeout    time.Duration `envconfig:"CONNECT_TIMEOUT" default:"15s"`
	ConfirmTimeout    time.Duration `envconfig:"CONFIRM_TIMEOUT" default:"60s"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	OpenBrowser       bool          `envconfig:"OPEN_BROWSER" default:"true"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"text"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Validate checks values envconfig cannot express
func (c *Config) Validate() error {
	switch c.SessionStore {
	case "file", "keyring":
	default:
		return fmt.Errorf("SESSION_STORE must be file or keyring, got %q", c.SessionStore)
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("CONNECT_TIMEOUT must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return errors.New("CONFIRM_TIMEOUT must be positive")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetSolanaRPCURL returns Solana RPC URL from configuration
func GetSolanaRPCURL() string {
	return Get().SolanaRPCURL
}

// GetAPIBaseURL returns the radio backend base URL from configuration
func GetAPIBaseURL() string {
	return Get().APIBaseURL
}

// GetSessionFilePath returns path to .cws file from configuration
func GetSessionFilePath() string {
	return Get().SessionFilePath
}

var passwordBytes []byte

// PromptForPassword prompts the user for the session password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// WALLETLINK_PASSWORD takes precedence for non-interactive runs.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if env := os.Getenv("WALLETLINK_PASSWORD"); env != "" {
		SetSessionPassword([]byte(env))
		return nil
	}

	raw, err := ReadPassword("Enter session password: ")
	if err != nil {
		return err
	}
	passwordBytes = raw
	return nil
}

// ReadPassword reads one hidden line from the terminal
func ReadPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run interactively or set WALLETLINK_PASSWORD")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}

// SetSessionPassword stores a copy of password in memory
func SetSessionPassword(password []byte) {
	clear(passwordBytes)
	passwordBytes = make([]byte, len(password))
	copy(passwordBytes, password)
}

// GetSessionPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetSessionPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
