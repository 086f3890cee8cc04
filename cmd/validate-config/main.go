package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vibesense/vibesense/internal/config"
)

func main() {
	fmt.Println("Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Note: .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid.")
	fmt.Printf("Details:\n")
	fmt.Printf("  - Listen: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  - DB Host: %s\n", cfg.DB.Host)
	fmt.Printf("  - DB Port: %s\n", cfg.DB.Port)
	fmt.Printf("  - DB User: %s\n", cfg.DB.User)
	fmt.Printf("  - DB Name: %s\n", cfg.DB.DBName)
	fmt.Printf("  - Redis Enabled: %v\n", cfg.Redis.Enabled)
	fmt.Printf("  - AI Provider: %s\n", cfg.AI.Provider)
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.AI.GeminiAPIKey))
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.AI.OpenAIAPIKey))
	fmt.Printf("  - Refine Timeout: %v\n", cfg.AI.RefineTimeout)
	fmt.Printf("  - Smoothing Alpha: %v\n", cfg.Heart.SmoothingAlpha)
	fmt.Printf("  - BPM Band: [%v, %v]\n", cfg.Heart.MinBPM, cfg.Heart.MaxBPM)
	fmt.Printf("  - Zone Thresholds: %v/%v/%v/%v\n",
		cfg.Heart.LightAt, cfg.Heart.ModerateAt, cfg.Heart.VigorousAt, cfg.Heart.PeakAt)
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
