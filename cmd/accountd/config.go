package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/mail"
	"github.com/goliatone/go-account/storage"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "accountd.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "accountd.log"
	defaultListen         = ":8000"
	defaultDSN            = "file:accountd.db"
	defaultMaxLogRolls    = 3
)

// config defines the options of accountd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	Listen        string `long:"listen" description:"Interface and port to listen on"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,..."`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable logging to a file"`
	Debug         bool   `long:"debug" description:"Dump created records to the log"`

	SecretKey        string        `long:"secretkey" env:"ACCOUNTD_SECRET_KEY" description:"Key used to sign session and lifecycle tokens"`
	Issuer           string        `long:"issuer" description:"Token issuer"`
	SiteURL          string        `long:"siteurl" description:"Public base URL used in email links"`
	RoutePrefix      string        `long:"routeprefix" description:"Path prefix of the JSON API"`
	SessionCookie    string        `long:"sessioncookie" description:"Name of the session cookie"`
	SessionTTL       time.Duration `long:"sessionttl" description:"Lifetime of a session"`
	InsecureCookies  bool          `long:"insecurecookies" description:"Send cookies over plain HTTP"`
	DisableCSRF      bool          `long:"disablecsrf" description:"Disable CSRF protection"`
	ActivationMaxAge time.Duration `long:"activationmaxage" description:"Validity of activation links"`
	ResetMaxAge      time.Duration `long:"resetmaxage" description:"Validity of password reset links"`
	BcryptCost       int           `long:"bcryptcost" description:"bcrypt cost for password hashes"`
	DeterministicIDs bool          `long:"deterministicids" description:"Derive account ids from the email address"`

	DBDriver string `long:"dbdriver" description:"Database driver {sqlite, postgres}"`
	DBDSN    string `long:"dsn" env:"ACCOUNTD_DSN" description:"Database connection string"`
	DBDebug  bool   `long:"dbdebug" description:"Log every SQL query"`

	MailHost       string `long:"mailhost" description:"SMTP host:port"`
	MailUser       string `long:"mailuser" description:"SMTP user"`
	MailPass       string `long:"mailpass" env:"ACCOUNTD_MAIL_PASS" description:"SMTP password"`
	MailAddress    string `long:"mailaddress" description:"From address of outgoing emails"`
	MailCert       string `long:"mailcert" description:"Certificate of the SMTP server"`
	MailSkipVerify bool   `long:"mailskipverify" description:"Skip TLS verification of the SMTP server"`
}

func defaultConfig() config {
	opts := account.DefaultOptions()
	return config{
		ConfigFile:       defaultConfigFilename,
		Listen:           defaultListen,
		DebugLevel:       defaultLogLevel,
		LogDir:           defaultLogDirname,
		Issuer:           opts.Issuer,
		SiteURL:          opts.SiteURL,
		RoutePrefix:      opts.RoutePrefix,
		SessionCookie:    opts.SessionCookieName,
		SessionTTL:       opts.SessionTTL,
		ActivationMaxAge: opts.ActivationMaxAge,
		ResetMaxAge:      opts.ResetMaxAge,
		BcryptCost:       opts.PasswordHashCost,
		DBDriver:         storage.DriverSQLite,
		DBDSN:            defaultDSN,
		MailAddress:      "Accounts <noreply@localhost>",
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return nil, err
		}
	}

	cfg.ConfigFile = preCfg.ConfigFile

	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// command line options take precedence
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.LogDir = filepath.Clean(cfg.LogDir)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("loadConfig: --secretkey or ACCOUNTD_SECRET_KEY is required")
	}

	if err := cfg.accountOptions().Validate(); err != nil {
		return nil, fmt.Errorf("loadConfig: %w", err)
	}

	return &cfg, nil
}

func (c *config) accountOptions() account.Options {
	opts := account.DefaultOptions()
	opts.SecretKey = c.SecretKey
	opts.Issuer = c.Issuer
	opts.SiteURL = c.SiteURL
	opts.RoutePrefix = c.RoutePrefix
	opts.SessionCookieName = c.SessionCookie
	opts.SessionTTL = c.SessionTTL
	opts.SessionSecure = !c.InsecureCookies
	opts.CSRFEnabled = !c.DisableCSRF
	opts.ActivationMaxAge = c.ActivationMaxAge
	opts.ResetMaxAge = c.ResetMaxAge
	opts.PasswordHashCost = c.BcryptCost
	opts.DeterministicIDs = c.DeterministicIDs
	return opts
}

func (c *config) storageConfig() storage.Config {
	return storage.Config{
		Driver: c.DBDriver,
		DSN:    c.DBDSN,
		Debug:  c.DBDebug,
	}
}

func (c *config) mailConfig() mail.Config {
	return mail.Config{
		Host:       c.MailHost,
		User:       c.MailUser,
		Password:   c.MailPass,
		From:       c.MailAddress,
		CertPath:   c.MailCert,
		SkipVerify: c.MailSkipVerify,
	}
}

func (c *config) logFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}
