/*
main.go - Development token minting

PURPOSE:
  Prints a bearer token for an employee so the API can be exercised
  without an identity service. Uses the same ATTENDANCE_JWT_SECRET as the
  server.

EXAMPLES:
  # Employee 3 checking in
  TOKEN=$(./token -employee=3)
  curl -X POST -H "Authorization: Bearer $TOKEN" localhost:8080/api/attendance/checkin

  # Admin token valid for one hour
  ./token -role=admin -ttl=1h
*/
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	employeeID := flag.Int64("employee", 0, "employee id the token acts as")
	roleName := flag.String("role", string(api.RoleEmployee), "employee or admin")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "token lifetime")
	flag.Parse()

	role, err := api.ParseRole(*roleName)
	if err != nil {
		log.Fatal(err)
	}
	if role == api.RoleEmployee && *employeeID <= 0 {
		log.Fatal("-employee is required for employee tokens")
	}

	token, err := api.NewAuthenticator(cfg.JWTSecret, *ttl).Mint(attendance.EmployeeID(*employeeID), role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
