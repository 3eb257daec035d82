package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env              string
	Build            string
	AppName          string
	Debug            bool
	TestMode         bool
	SecretKey        string
	DefaultFromEmail mail.Address
	FrontendBaseURL  string
	RollbarToken     string
	SendgridAPIKey   string

	Server struct {
		Address                   string
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
	}

	Database struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Attendance struct {
		DefaultRequiredPercentage float64
	}

	Reminder struct {
		Enabled      bool
		Schedule     string // cron spec, server local time
		EmailEnabled bool
	}

	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		VAPIDSubject    string
	}
}

// DatabaseAddress returns the database host:port.
func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// NewConfig loads the configuration of the current ENV (DEV, TEST, QA, PROD).
// Values come from `config/.env.<env>` (if it exists) and <ENV>_ prefixed environment variables.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)
	v.AutomaticEnv()

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridAPIKey:  v.GetString("sendgridAPIKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
	}

	conf.Server.Address = v.GetString("server.address")
	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ReadTimeout = v.GetDuration("server.readTimeout")
	conf.Server.WriteTimeout = v.GetDuration("server.writeTimeout")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("server.jwtRefreshExpirationDelta")
	conf.Server.AllowedOrigins = v.GetStringSlice("server.allowedOrigins")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")

	conf.Attendance.DefaultRequiredPercentage = v.GetFloat64("attendance.defaultRequiredPercentage")

	conf.Reminder.Enabled = v.GetBool("reminder.enabled")
	conf.Reminder.Schedule = v.GetString("reminder.schedule")
	conf.Reminder.EmailEnabled = v.GetBool("reminder.emailEnabled")

	conf.Push.VAPIDPublicKey = v.GetString("push.vapidPublicKey")
	conf.Push.VAPIDPrivateKey = v.GetString("push.vapidPrivateKey")
	conf.Push.VAPIDSubject = normalizeVAPIDSubject(v.GetString("push.vapidSubject"))

	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("build", "dev")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Attendly")
	v.SetDefault("secretKey", "secretattendanceapp")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")

	v.SetDefault("server.address", ":5001")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4001")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173", "http://localhost:5174"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "attendly")
	v.SetDefault("database.user", "attendly")
	v.SetDefault("database.password", "attendly")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("attendance.defaultRequiredPercentage", 75.0)

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.schedule", "0 19 * * *")
	v.SetDefault("reminder.emailEnabled", false)

	v.SetDefault("push.vapidPublicKey", "")
	v.SetDefault("push.vapidPrivateKey", "")
	v.SetDefault("push.vapidSubject", "mailto:noreply@localhost")
}

// VAPID subjects must be a mailto: (or https:) URL.
func normalizeVAPIDSubject(subj string) string {
	subj = strings.TrimSpace(subj)
	if subj == "" || strings.HasPrefix(subj, "mailto:") || strings.HasPrefix(subj, "https:") {
		return subj
	}
	return "mailto:" + subj
}
