package main

import (
	"fmt"
	"log"
	"os"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/routes"
	"emidesk-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.MasterProduct{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.EmiSchedule{},
		&models.EmiInstallment{},
		&models.EmiReminderLog{},
	)

	if err := config.SeedRoleUsers(config.DB, config.LoadRoleCredentials()); err != nil {
		log.Printf("Failed to seed role users: %v", err)
	}
}

func main() {

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	reminders := services.NewReminderService(config.DB)
	reminders.StartScheduler()

	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
