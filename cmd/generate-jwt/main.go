package main

import (
	"flag"
	"fmt"
	"os"

	"roadrescue/internal/shared/auth"
	"roadrescue/internal/shared/config"
)

func main() {
	userID := flag.String("user", "550e8400-e29b-41d4-a716-446655440000", "User ID (UUID)")
	email := flag.String("email", "test@example.com", "Email address")
	role := flag.String("role", "customer", "Role (customer|technician)")
	flag.Parse()

	// Загружаем конфигурацию (тот же способ, что и в сервисе)
	cfg := config.Load()

	jwtService := auth.NewJWTService(cfg.JWT)

	token, err := jwtService.GenerateToken(*userID, *email, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating JWT token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ JWT Token generated successfully!\n\n")
	fmt.Printf("User ID:   %s\n", *userID)
	fmt.Printf("Email:     %s\n", *email)
	fmt.Printf("Role:      %s\n", *role)
	fmt.Printf("\nToken:\n%s\n", token)
	fmt.Printf("\n📋 Copy this for API requests:\n")
	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("\n💡 Example curl:\n")
	fmt.Printf("curl -X POST http://localhost:5000/services \\\n")
	fmt.Printf("  -H 'Authorization: Bearer %s' \\\n", token)
	fmt.Printf("  -H 'Content-Type: application/json' \\\n")
	fmt.Printf("  -d '{\n")
	fmt.Printf("    \"type\": \"towing\",\n")
	fmt.Printf("    \"location\": {\"type\": \"Point\", \"coordinates\": [37.6173, 55.7558]},\n")
	fmt.Printf("    \"address\": \"Red Square, Moscow\",\n")
	fmt.Printf("    \"description\": \"engine will not start\"\n")
	fmt.Printf("  }'\n\n")
}
