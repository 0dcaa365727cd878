package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jobreel/jobreel-backend/internal/app"
	"github.com/jobreel/jobreel-backend/internal/utils"
)

func main() {
	// Env
	_ = godotenv.Load()

	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	port := utils.GetEnv("PORT", "8080", application.Log)
	application.Log.Info("Server listening", "port", port)
	if err := application.Run(":" + port); err != nil {
		application.Log.Error("Server failed", "error", err.Error())
		os.Exit(1)
	}
}
