package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soltony/bnpl-engine/config"
	"github.com/soltony/bnpl-engine/controllers"
	"github.com/soltony/bnpl-engine/database"
	"github.com/soltony/bnpl-engine/middleware"
	"github.com/soltony/bnpl-engine/services"
)

// healthHandler отвечает на проверку живости сервиса
func healthHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	// Инициализируем сервисы
	disbursementService := services.NewDisbursementService(db.DB)
	repaymentService := services.NewRepaymentService(db.DB)
	userService := services.NewUserService(db.DB)

	// Запускаем планировщик пересчета штрафов
	scheduler := services.NewOverdueSchedulerService(db.DB, cfg.Scheduler.OverdueScanInterval)
	scheduler.Start()
	log.Println("Планировщик пересчета штрафов запущен")

	// Инициализируем контроллеры
	authController := controllers.NewAuthController(userService, cfg)
	loanController := controllers.NewLoanController(disbursementService, repaymentService)

	// Создаем роутер
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimit())

	router.GET("/health", healthHandler)

	// Публичные маршруты для аутентификации
	router.POST("/api/auth/signIn", authController.SignIn)

	// Защищенные маршруты
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware([]byte(cfg.JWT.SecretKey)))

	// Маршруты для работы с займами
	protected.POST("/loans/disburse", loanController.Disburse)
	protected.GET("/loans", loanController.GetLoans)
	protected.GET("/loans/:id", loanController.GetLoan)
	protected.POST("/loans/:id/repay", loanController.Repay)
	protected.GET("/loans/:id/payments", loanController.GetPayments)
	protected.GET("/metrics", loanController.GetMetrics)

	// Запускаем сервер
	port := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на порту %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
