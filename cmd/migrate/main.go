package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/LionTheUnknown/GLIM-sub000/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate COMMAND\n\nCommands:\n  up\n  down\n  status")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	defer db.Close()

	goose.SetBaseFS(database.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch os.Args[1] {
	case "up":
		if err := goose.Up(db, "migrations"); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
	case "down":
		if err := goose.Down(db, "migrations"); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
	case "status":
		if err := goose.Status(db, "migrations"); err != nil {
			log.Fatalf("Migration status failed: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}
