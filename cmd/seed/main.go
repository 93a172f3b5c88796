package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kevin07696/gocardless-service/internal/adapters/postgres"
	"github.com/kevin07696/gocardless-service/internal/config"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Seeds a customer's one-off order, a subscription with its parent order
// and an upon-release pre-order, for exercising checkout in the sandbox.
func main() {
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbCfg := config.LoadDatabaseFromEnv()
		dbURL = dbCfg.URL()
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	orders := postgres.NewOrderRepository(postgres.NewDBExecutor(pool))

	customerID := "dev-customer-1"
	billing := domain.BillingDetails{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Address1:    "12 Analytical Row",
		City:        "London",
		Postcode:    "EC1V 2NX",
		CountryCode: "GB",
	}

	parentID := uuid.New().String()
	seeded := []*domain.Order{
		{
			ID:            uuid.New().String(),
			CustomerID:    customerID,
			Kind:          domain.OrderKindOrder,
			Status:        domain.OrderStatusPending,
			PaymentMethod: domain.GatewayID,
			Currency:      "GBP",
			Total:         decimal.RequireFromString("24.99"),
			Items:         []domain.OrderItem{{Name: "Tea sampler", Quantity: 1}},
			Billing:       billing,
		},
		{
			ID:                   parentID,
			CustomerID:           customerID,
			Kind:                 domain.OrderKindOrder,
			Status:               domain.OrderStatusPending,
			PaymentMethod:        domain.GatewayID,
			Currency:             "GBP",
			Total:                decimal.RequireFromString("10.00"),
			Items:                []domain.OrderItem{{Name: "Monthly coffee box", Quantity: 1}},
			Billing:              billing,
			ContainsSubscription: true,
		},
		{
			ID:            uuid.New().String(),
			CustomerID:    customerID,
			Kind:          domain.OrderKindSubscription,
			ParentID:      parentID,
			Status:        domain.OrderStatusPending,
			PaymentMethod: domain.GatewayID,
			Currency:      "GBP",
			Total:         decimal.RequireFromString("10.00"),
			Billing:       billing,
		},
		{
			ID:            uuid.New().String(),
			CustomerID:    customerID,
			Kind:          domain.OrderKindOrder,
			Status:        domain.OrderStatusPending,
			PaymentMethod: domain.GatewayID,
			Currency:      "EUR",
			Total:         decimal.RequireFromString("59.00"),
			Items:         []domain.OrderItem{{Name: "Grinder (pre-order)", Quantity: 1}},
			Billing:       billing,
			PreOrder:      domain.PreOrderUponRelease,
		},
	}

	for _, order := range seeded {
		order.Number = order.ID[:8]
		if err := orders.Upsert(ctx, nil, order); err != nil {
			log.Fatalf("Failed to seed order %s: %v", order.ID, err)
		}
	}

	fmt.Println("========================================")
	fmt.Println("SEED DATA CREATED SUCCESSFULLY")
	fmt.Println("========================================")
	for _, order := range seeded {
		fmt.Printf("  %-12s %s  %s %s\n", order.Kind, order.ID, order.Total.StringFixed(2), order.Currency)
	}
	fmt.Printf("Customer: %s\n", customerID)
}
