package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"stayhub-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// SeedDatabase seeds rooms and demo customers for local development. The
// booking core treats both as read-only collaborators.
func SeedDatabase() {
	var roomCount int64
	DB.Model(&models.Room{}).Count(&roomCount)
	if roomCount == 0 {
		rooms := []models.Room{
			{RoomNumber: "101", Type: "Standard", Status: "Available", PriceCents: 1000_00, MaxOccupancy: 2, Description: "Standard Room"},
			{RoomNumber: "102", Type: "Standard", Status: "Available", PriceCents: 1000_00, MaxOccupancy: 2, Description: "Standard Room"},
			{RoomNumber: "201", Type: "Superior", Status: "Available", PriceCents: 1500_00, MaxOccupancy: 3, Description: "Superior Room"},
			{RoomNumber: "301", Type: "Deluxe", Status: "Available", PriceCents: 2500_00, MaxOccupancy: 4, Description: "Deluxe Room"},
		}
		if err := DB.Create(&rooms).Error; err != nil {
			log.Printf("warning: failed to seed rooms: %v", err)
		} else {
			log.Println("Rooms seeded")
		}
	}

	var custCount int64
	DB.Model(&models.Customer{}).Count(&custCount)
	if custCount == 0 {
		customers := []models.Customer{
			{FullName: "Demo Guest", Email: "guest@example.com"},
		}
		if err := DB.Create(&customers).Error; err != nil {
			log.Printf("warning: failed to seed customers: %v", err)
		} else {
			log.Println("Customers seeded")
		}
	}
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "Local")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

func resolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := envOrDefault("DB_USER", "root")
	pass := envOrDefault("DB_PASS", "")
	host := envOrDefault("DB_HOST", "127.0.0.1")
	port := envOrDefault("DB_PORT", "3306")
	dbName := envOrDefault("DB_NAME", "stayhub_db")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, dbName,
	)
	return dsn, nil
}

func ConnectDatabase() error {
	dsn, err := resolveMySQLDSN()
	if err != nil {
		return err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return err
	}

	DB = db

	// AutoMigrate in parent->child order. The unique indexes declared on the
	// models (reference_code, external_intent_id, webhook intent+type,
	// loyalty customer_id) are the storage-level idempotency constraints.
	if err := DB.AutoMigrate(
		&models.Customer{},
		&models.Room{},
		&models.Booking{},
		&models.PaymentTransaction{},
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
		&models.WebhookEvent{},
	); err != nil {
		return err
	}

	SeedDatabase()
	return nil
}
