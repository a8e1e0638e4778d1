package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"kiosk/internal/admin"
	"kiosk/internal/config"
	"kiosk/internal/store"
)

// Seeds or verifies an admin account. Run once after provisioning:
//
//	createadmin -username admin -password 'change-me' -email admin@example.edu
func main() {
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (required)")
	email := flag.String("email", "", "contact email")
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}

	cfg := config.Load()
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	svc := admin.NewService(admin.NewRepository(db.Client))

	var emailPtr *string
	if *email != "" {
		emailPtr = email
	}

	err = svc.CreateUser(context.Background(), *username, emailPtr, *password)
	if errors.Is(err, admin.ErrUserExists) {
		log.Printf("admin user %q already exists, nothing to do", *username)
		return
	}
	if err != nil {
		log.Fatalf("create admin failed: %v", err)
	}
	log.Printf("admin user %q created", *username)
}
