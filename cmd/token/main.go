// Command token prints a signed access token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user_id claim (required)")
	employeeID := flag.String("employee", "", "employee_id claim")
	role := flag.String("role", string(auth.RoleEmployee), "role claim: employee, manager or admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET_KEY and -user are required")
		os.Exit(2)
	}

	svc := jwt.NewJWTService(secret, *ttl)
	token, _, err := svc.GenerateAccessToken(auth.Identity{
		UserID:     *userID,
		EmployeeID: *employeeID,
		Role:       auth.Role(*role),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
