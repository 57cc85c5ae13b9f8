package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"student-billing/internal/domain/plans"
)

type Config struct {
	Port           string
	DBURL          string
	JWTSecret      string
	CORSOrigin     string
	CheckoutDomain string
	LogLevel       string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePrices        plans.StripePrices

	BTCPay    BTCPay
	WordPress WordPress
	Discord   Discord
	SMTP      SMTP

	// RedisURL is optional; per-student locks stay in-process when empty.
	RedisURL string

	TickSchedule string
	TickWorkers  int
}

type BTCPay struct {
	URL           string
	StoreID       string
	APIKey        string
	WebhookSecret string
}

type WordPress struct {
	APIURL         string
	User           string
	Pass           string
	StudentGroupID string
}

type Discord struct {
	GuildID       string
	BotToken      string
	ClientID      string
	StudentRoleID string
}

type SMTP struct {
	Host     string
	Port     string
	From     string
	Password string
}

func LoadEnv() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DBURL:          mustEnv("DB_URL"),
		JWTSecret:      mustEnv("JWT_SECRET"),
		CORSOrigin:     getEnv("CORS_ORIGIN", ""),
		CheckoutDomain: mustEnv("CHECKOUT_DOMAIN"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		StripeSecretKey:     mustEnv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: mustEnv("STRIPE_WEBHOOK_SECRET"),
		StripePrices: plans.StripePrices{
			Global: plans.PriceIDs{
				Signup:  mustEnv("STRIPE_PRICE_GLOBAL_SIGNUP"),
				Monthly: mustEnv("STRIPE_PRICE_GLOBAL_MONTHLY"),
				Degree:  mustEnv("STRIPE_PRICE_GLOBAL_DEGREE"),
			},
			Europe: plans.PriceIDs{
				Signup:  mustEnv("STRIPE_PRICE_EUROPE_SIGNUP"),
				Monthly: mustEnv("STRIPE_PRICE_EUROPE_MONTHLY"),
				Degree:  mustEnv("STRIPE_PRICE_EUROPE_DEGREE"),
			},
			Latam: plans.PriceIDs{
				Signup:  mustEnv("STRIPE_PRICE_LATAM_SIGNUP"),
				Monthly: mustEnv("STRIPE_PRICE_LATAM_MONTHLY"),
				Degree:  mustEnv("STRIPE_PRICE_LATAM_DEGREE"),
			},
		},

		BTCPay: BTCPay{
			URL:           mustEnv("BTCPAY_URL"),
			StoreID:       getEnv("BTCPAY_STORE_ID", ""),
			APIKey:        mustEnv("BTCPAY_API_KEY"),
			WebhookSecret: mustEnv("BTCPAY_WEBHOOK_SECRET"),
		},
		WordPress: WordPress{
			APIURL:         mustEnv("WORDPRESS_API_URL"),
			User:           mustEnv("WORDPRESS_USER"),
			Pass:           mustEnv("WORDPRESS_PASS"),
			StudentGroupID: mustEnv("WORDPRESS_STUDENT_GROUP_ID"),
		},
		Discord: Discord{
			GuildID:       mustEnv("DISCORD_GUILD_ID"),
			BotToken:      mustEnv("DISCORD_BOT_TOKEN"),
			ClientID:      mustEnv("DISCORD_CLIENT_ID"),
			StudentRoleID: mustEnv("DISCORD_STUDENT_ROLE_ID"),
		},
		SMTP: SMTP{
			Host:     mustEnv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			From:     mustEnv("SMTP_FROM"),
			Password: mustEnv("SMTP_PASSWORD"),
		},

		RedisURL: getEnv("REDIS_URL", ""),

		TickSchedule: getEnv("BILLING_TICK_SCHEDULE", "0 * * * *"),
		TickWorkers:  getEnvInt("BILLING_TICK_WORKERS", 4),
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}
