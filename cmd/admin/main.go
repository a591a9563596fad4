package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: promote, force-status, purge")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "promote":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin promote <user_id> <citizen|officer|admin>")
			os.Exit(1)
		}
		userID, role := os.Args[2], models.Role(os.Args[3])
		if !role.Valid() {
			fmt.Printf("Invalid role %q.\n", os.Args[3])
			os.Exit(1)
		}
		if err := promoteUser(ctx, storageSvc, userID, role); err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("User %s is now %s.\n", userID, role)

	case "force-status":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin force-status <complaint_id> <status> [notes]")
			os.Exit(1)
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid complaint ID. Please provide an integer.")
			os.Exit(1)
		}
		notes := ""
		if len(os.Args) > 4 {
			notes = os.Args[4]
		}
		if err := forceStatus(ctx, storageSvc, uint(id), models.ComplaintStatus(os.Args[3]), notes); err != nil {
			log.Fatalf("Error forcing status: %v", err)
		}
		fmt.Printf("Complaint %d moved to %s.\n", id, os.Args[3])

	case "purge":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin purge <complaint_id>")
			os.Exit(1)
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid complaint ID. Please provide an integer.")
			os.Exit(1)
		}
		if err := storageSvc.HardDeleteComplaint(ctx, uint(id)); err != nil {
			log.Fatalf("Error purging complaint: %v", err)
		}
		fmt.Printf("Complaint %d purged.\n", id)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func promoteUser(ctx context.Context, s storage.Store, userID string, role models.Role) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Role = role
	return s.SaveUser(ctx, user)
}

// forceStatus runs an admin transition without a broadcaster: offline
// repairs do not need realtime fan-out.
func forceStatus(ctx context.Context, s storage.Store, complaintID uint, to models.ComplaintStatus, notes string) error {
	transitions := status.NewService(s, nil)
	actor := status.Actor{ID: "admin-cli", Role: models.RoleAdmin}
	_, err := transitions.Transition(ctx, complaintID, to, actor, notes)
	return err
}
