package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/giftroom/internal/config"
	"github.com/localnerve/giftroom/internal/database"
	"github.com/localnerve/giftroom/internal/handlers"
	"github.com/localnerve/giftroom/internal/middleware"

	_ "github.com/localnerve/giftroom/docs/api" // Swagger docs
)

// @title Giftroom API
// @version 1.0.0
// @description Go Fiber data service for gift crowdfunding rooms and their discussion forum
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/giftroom
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("giftroom")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	roomHandler := &handlers.RoomHandler{DB: db}
	forumHandler := &handlers.ForumHandler{DB: db}
	threadHandler := &handlers.ThreadHandler{DB: db}
	messageHandler := &handlers.MessageHandler{DB: db}

	// Room routes (reads are user-gated, writes too; auth middleware
	// checks the session role, the acting domain user arrives explicitly)
	rooms := api.Group("/rooms", middleware.AuthUser())
	rooms.Get("/", roomHandler.ListRooms)
	rooms.Post("/", roomHandler.CreateRoom)
	rooms.Get("/:id", roomHandler.GetRoom)
	rooms.Put("/:id", roomHandler.UpdateRoom)
	rooms.Post("/:id/donate", roomHandler.Donate)
	rooms.Get("/:id/patrons", roomHandler.GetPatrons)
	rooms.Get("/:id/chart", roomHandler.GetChart)
	rooms.Post("/:id/score", roomHandler.UpdateScore)
	rooms.Post("/:id/observers", roomHandler.AddObserver)
	rooms.Get("/:id/guests", roomHandler.ListGuests)
	rooms.Post("/:id/guests", roomHandler.AddGuests)
	rooms.Delete("/:id/guests/:username", roomHandler.RemoveGuest)
	rooms.Get("/:id/posts", forumHandler.RoomPosts)
	rooms.Post("/:id/posts", forumHandler.CreatePost)

	// Forum routes
	forum := api.Group("/forum", middleware.AuthUser())
	forum.Get("/posts", forumHandler.ListPosts)
	forum.Put("/posts/:id", forumHandler.UpdatePost)
	forum.Delete("/posts/:id", forumHandler.DeletePost)
	forum.Get("/posts/:id/tree", threadHandler.ThreadTree)
	forum.Post("/posts/:id/threads", threadHandler.CreateThread)
	forum.Post("/threads/fetch", threadHandler.FetchThreads)
	forum.Post("/likes", forumHandler.AddLike)
	forum.Post("/dislikes", forumHandler.AddDislike)

	// Message routes
	messages := api.Group("/messages", middleware.AuthUser())
	messages.Get("/", messageHandler.ListMessages)
	messages.Post("/", messageHandler.SendMessage)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Authorizer initialization happens lazily in the auth middleware
	log.Printf("Authorizer will be initialized on first authenticated request")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
