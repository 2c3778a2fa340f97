package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	Build    string

	AppName          string
	SecretKey        []byte
	FrontendBaseURL  string
	DefaultFromEmail mail.Address
	SendgridAPIKey   string
	RollbarToken     string

	Server struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		URI  string
		Name string
	}

	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		// Subscriber is the contact address claimed in VAPID tokens.
		Subscriber string
	}

	EmailConfirmationTimeoutDelta time.Duration
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shule")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "w3lc0me-2-shule-cH4ng3=m3&b4!pr0d")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("emailConfirmationTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("databaseURI", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "shule")
	v.SetDefault("pushSubscriber", "mailto:admin@localhost")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		Env:      env,
		Build:    v.GetString("build"),

		AppName:         v.GetString("appName"),
		SecretKey:       []byte(v.GetString("secretKey")),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridAPIKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),

		EmailConfirmationTimeoutDelta: v.GetDuration("emailConfirmationTimeoutDelta"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Address = v.GetString("serverAddress")
	conf.Server.DebugAddress = v.GetString("serverDebugAddress")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Database.URI = v.GetString("databaseURI")
	conf.Database.Name = v.GetString("databaseName")
	conf.Push.VAPIDPublicKey = v.GetString("vapidPublicKey")
	conf.Push.VAPIDPrivateKey = v.GetString("vapidPrivateKey")
	conf.Push.Subscriber = v.GetString("pushSubscriber")

	if conf.Push.VAPIDPublicKey == "" || conf.Push.VAPIDPrivateKey == "" {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("config.GenerateVAPIDKeys: %v", err)
		}
		conf.Push.VAPIDPrivateKey = priv
		conf.Push.VAPIDPublicKey = pub
		log.Println("config: VAPID keys not set; generated a throwaway pair. " +
			"Generated keys are not persisted: existing push subscriptions will break on restart.")
	}
	return conf
}
