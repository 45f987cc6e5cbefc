package bootstrap

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Loadenv loads a .env file into the process environment. ENV_FILE selects a
// different file; a missing file is not an error.
func Loadenv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}
