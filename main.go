package main

import (
	"crypto/rand"
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/internal/api"
	"github.com/ydjemai93/test-drive/internal/config"
	"github.com/ydjemai93/test-drive/internal/dispatch"
	"github.com/ydjemai93/test-drive/internal/engine"
	"github.com/ydjemai93/test-drive/internal/events"
	"github.com/ydjemai93/test-drive/internal/livekit"
	"github.com/ydjemai93/test-drive/internal/logic"
	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/internal/worker"
	"github.com/ydjemai93/test-drive/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// The Python worker kept its secrets in .env.local; keep honoring it.
	_ = godotenv.Load(".env.local")

	// 1. Load Config
	config.LoadConfig()

	// 2. Init Logger
	logger.InitLogger(config.AppConfig.Log.Level)
	logger.Log.Info("Starting Outbound Call Orchestrator...")

	// 3. Init Database
	db := initDB()

	// 4. Init Router
	if config.AppConfig.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 5. Build the call pipeline
	cfg := config.AppConfig
	hub := events.NewHub()
	lk := livekit.NewClient(cfg.LiveKit.URL, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.Agent.IdentityPrefix)

	orch := &agent.Orchestrator{
		Connector:    lk,
		SIP:          lk,
		Admin:        lk,
		Engines:      engine.NewFactory(engine.Config{
			APIKey:       cfg.Engine.APIKey,
			Model:        cfg.Engine.Model,
			Voice:        cfg.Engine.Voice,
			BaseURL:      cfg.Engine.BaseURL,
			Instructions: cfg.Engine.Instructions,
		}),
		Appointments:     logic.NewAppointmentService(),
		TrunkID:          cfg.SIP.OutboundTrunkID,
		FallbackMetadata: cfg.SIP.FallbackMetadata,
		FallbackPhone:    cfg.SIP.FallbackPhoneNumber,
		JoinTimeout:      cfg.Agent.JoinTimeout,
		Events:           hub,
	}

	// 6. Start Worker Manager
	wm := worker.NewManager(db, orch, hub, cfg.Agent.MaxConcurrent, cfg.Agent.QueueSize)
	wm.Start()
	defer wm.Stop()

	var dispatcher dispatch.Dispatcher
	switch cfg.Agent.DispatchMode {
	case "lk":
		dispatcher = &dispatch.LKCLI{Bin: cfg.Agent.LKBin, AgentName: cfg.Agent.Name}
	default:
		dispatcher = &dispatch.Embedded{Manager: wm}
	}
	logger.Log.Infof("Dispatch mode: %s", cfg.Agent.DispatchMode)

	// 7. Setup Routes
	ch := api.NewCallHandler(db, dispatcher)
	sh := api.NewStreamHandler(hub)
	wh := api.NewWebhookHandler(db)
	uh := api.NewUserHandler(db)

	apiGroup := r.Group("/api/v1")
	{
		apiGroup.POST("/login", uh.Login)

		// Authenticated Routes
		authGroup := apiGroup.Group("/")
		authGroup.Use(api.AuthMiddleware(db))
		{
			authGroup.POST("/change_password", uh.ChangePassword)

			authGroup.POST("/calls", ch.CreateCall)
			authGroup.GET("/calls", ch.ListCalls)
			authGroup.GET("/calls/:job_id", ch.GetCall)
			authGroup.GET("/calls/:job_id/events", sh.StreamCall)

			// Admin Only
			adminGroup := authGroup.Group("/")
			adminGroup.Use(api.AdminOnly())
			{
				adminGroup.GET("/webhooks", wh.ListWebhooks)
				adminGroup.POST("/webhooks", wh.CreateWebhook)
				adminGroup.DELETE("/webhooks/:id", wh.DeleteWebhook)

				adminGroup.GET("/users", uh.ListUsers)
				adminGroup.POST("/users", uh.CreateUser)
				adminGroup.DELETE("/users/:id", uh.DeleteUser)
			}
		}
	}

	port := config.AppConfig.Server.Port
	logger.Log.Infof("Server listening on %s", port)
	if err := r.Run(port); err != nil {
		logger.Log.Fatalf("Server failed to start: %v", err)
	}
}

func initDB() *gorm.DB {
	var db *gorm.DB
	var err error

	driver := config.AppConfig.Database.Driver
	dsn := config.AppConfig.Database.DSN

	switch driver {
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	default:
		// Default to SQLite (pure Go)
		if dsn == "" {
			dsn = "calls.db"
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	if err != nil {
		logger.Log.Fatalf("Failed to connect database (%s): %v", driver, err)
	}

	// Auto Migrate
	db.AutoMigrate(&model.User{}, &model.CallRecord{}, &model.Webhook{})

	// Init Admin
	var count int64
	db.Model(&model.User{}).Count(&count)
	if count == 0 {
		randPw := config.AppConfig.Users.DefaultAdminPassword
		if randPw == "" {
			const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
			ret := make([]byte, 12)
			for i := 0; i < 12; i++ {
				num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
				if err != nil {
					logger.Log.Fatalf("Failed to generate random password: %v", err)
				}
				ret[i] = chars[num.Int64()]
			}
			randPw = string(ret)
		}

		bytes, err := bcrypt.GenerateFromPassword([]byte(randPw), 14)
		if err != nil {
			logger.Log.Fatalf("Failed to hash password: %v", err)
		}

		admin := model.User{
			Username:     "admin",
			PasswordHash: string(bytes),
			Role:         "admin",
		}
		db.Create(&admin)
		logger.Log.Warnf("INITIAL ADMIN CREATED. Username: admin, Password: %s", randPw)
	}

	return db
}
