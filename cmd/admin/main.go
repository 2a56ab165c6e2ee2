package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"deskrelay/backend/internal/storage"
)

// Operator CLI for direct repository access: listing threads, closing a
// thread by id, and counters. Talks straight to Postgres; topic close
// and user notification go through the running bot's console API, not
// this tool.
func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	store := storage.NewService(db, nil, zap.NewNop()) // no Redis needed for the CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <list|close|stats> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		threads, err := store.ListActiveThreads()
		if err != nil {
			log.Fatalf("Error listing threads: %v", err)
		}
		if len(threads) == 0 {
			fmt.Println("No active threads.")
			return
		}
		for _, t := range threads {
			service := t.Service
			if service == "" {
				service = "-"
			}
			fmt.Printf("#%d\tuser=%d\tservice=%s\tcreated=%s\n",
				t.ID, t.UserID, service, t.CreatedAt.Format("2006-01-02 15:04"))
		}
	case "close":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin close <thread_id>")
			os.Exit(1)
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid thread id. Please provide an integer.")
			os.Exit(1)
		}
		if err := store.CloseThread(uint(id)); err != nil {
			log.Fatalf("Error closing thread: %v", err)
		}
		fmt.Printf("Thread %d has been closed.\n", id)
	case "stats":
		st, err := store.Stats()
		if err != nil {
			log.Fatalf("Error loading stats: %v", err)
		}
		fmt.Printf("users=%d active_threads=%d closed_threads=%d messages=%d referrals=%d\n",
			st.Users, st.ActiveThreads, st.ClosedThreads, st.Messages, st.Referrals)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
