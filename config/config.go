package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"stayhub-backend/models"
)

// RefundPolicy drives the cancellation refund computation. The late-refund
// percentage is explicit configuration, not a hard-coded rule.
type RefundPolicy struct {
	// Full refund when cancelling at least CancellationCutoff before check-in.
	CancellationCutoff time.Duration
	// Percent of the captured amount refunded on a late non-admin
	// cancellation, 0-100.
	LatePercent int
}

// TierRule maps a lifetime-spending threshold to an earning multiplier.
type TierRule struct {
	Name             string
	MinSpendingCents int64
	Multiplier       float64
}

// LoyaltyPolicy drives point earning and redemption.
type LoyaltyPolicy struct {
	// Points earned per dollar spent, before the tier multiplier.
	PointsPerDollar float64
	// Fraction of a booking redeemable with points, 0-1.
	MaxRedemptionPercent float64
	// Points worth one dollar of discount.
	PointsPerDollarValue int64
	// Ordered descending by MinSpendingCents.
	Tiers []TierRule
}

// TierFor returns the tier name for a lifetime spending amount.
func (p LoyaltyPolicy) TierFor(lifetimeSpendingCents int64) string {
	for _, rule := range p.Tiers {
		if lifetimeSpendingCents >= rule.MinSpendingCents {
			return rule.Name
		}
	}
	return models.TierBronze
}

// MultiplierFor returns the earning multiplier for a tier name.
func (p LoyaltyPolicy) MultiplierFor(tier string) float64 {
	for _, rule := range p.Tiers {
		if rule.Name == tier {
			return rule.Multiplier
		}
	}
	return 1.0
}

// GatewayConfig holds the payment-gateway collaborator settings.
type GatewayConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	Currency      string
}

type Config struct {
	Port        string
	CORSOrigins string

	Refund  RefundPolicy
	Loyalty LoyaltyPolicy
	Gateway GatewayConfig
}

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using default %v", key, raw, def)
		return def
	}
	return v
}

// DefaultLoyaltyPolicy returns the standard tier table: BRONZE from $0 (1.0x),
// SILVER from $500 (1.25x), GOLD from $2000 (1.5x), PLATINUM from $5000 (2.0x).
func DefaultLoyaltyPolicy() LoyaltyPolicy {
	return LoyaltyPolicy{
		PointsPerDollar:      1.0,
		MaxRedemptionPercent: 0.5,
		PointsPerDollarValue: 100,
		Tiers: []TierRule{
			{Name: models.TierPlatinum, MinSpendingCents: 500000, Multiplier: 2.0},
			{Name: models.TierGold, MinSpendingCents: 200000, Multiplier: 1.5},
			{Name: models.TierSilver, MinSpendingCents: 50000, Multiplier: 1.25},
			{Name: models.TierBronze, MinSpendingCents: 0, Multiplier: 1.0},
		},
	}
}

// Load reads configuration from the environment with sane defaults.
func Load() *Config {
	loyalty := DefaultLoyaltyPolicy()
	loyalty.PointsPerDollar = envFloat("LOYALTY_POINTS_PER_DOLLAR", loyalty.PointsPerDollar)
	loyalty.MaxRedemptionPercent = envFloat("LOYALTY_MAX_REDEMPTION_PERCENT", loyalty.MaxRedemptionPercent*100) / 100
	loyalty.PointsPerDollarValue = int64(envInt("LOYALTY_POINTS_PER_DOLLAR_VALUE", int(loyalty.PointsPerDollarValue)))
	if loyalty.PointsPerDollarValue < 1 {
		log.Printf("warning: LOYALTY_POINTS_PER_DOLLAR_VALUE must be at least 1, using 1")
		loyalty.PointsPerDollarValue = 1
	}

	return &Config{
		Port:        envOrDefault("PORT", "8080"),
		CORSOrigins: envOrDefault("CORS_ORIGINS", ""),
		Refund: RefundPolicy{
			CancellationCutoff: time.Duration(envInt("REFUND_CUTOFF_HOURS", 24)) * time.Hour,
			LatePercent:        envInt("REFUND_LATE_PERCENT", 50),
		},
		Loyalty: loyalty,
		Gateway: GatewayConfig{
			BaseURL:       envOrDefault("GATEWAY_BASE_URL", "https://api.gateway.local"),
			SecretKey:     envOrDefault("GATEWAY_SECRET_KEY", ""),
			WebhookSecret: envOrDefault("GATEWAY_WEBHOOK_SECRET", ""),
			Timeout:       time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,
			Currency:      envOrDefault("GATEWAY_CURRENCY", "THB"),
		},
	}
}
