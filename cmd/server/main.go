package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaycrm/backend/internal/application/services"
	"github.com/relaycrm/backend/internal/bootstrap"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/interfaces/middleware"
	"github.com/relaycrm/backend/internal/interfaces/rest"
)

func main() {
	// .env is optional, the environment wins
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	svcMgr := services.NewServiceManager(db)
	log.Println("🔧 Service manager initialized")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := bootstrap.SeedDemoData(context.Background(), svcMgr); err != nil {
			log.Printf("⚠️ Demo data seeding failed: %v", err)
		}
	}

	router := buildRouter(svcMgr)

	// Background workers: outbox, email queue, scheduler, agent orchestrator
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	if err := svcMgr.StartWorkers(workerCtx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}
	log.Println("📤 Background workers started")

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("🚀 RelayCRM backend listening on http://localhost:%s", port)
	log.Printf("💚 Health check:  http://localhost:%s/health", port)
	log.Printf("📊 Metrics:       http://localhost:%s/metrics", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.StopWorkers()
	stopWorkers()
	log.Println("🛑 Background workers stopped")

	// In-flight requests get 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}

func buildRouter(svcMgr *services.ServiceManager) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.Cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := rest.NewAuthHandler(svcMgr)
	leadHandler := rest.NewLeadHandler(svcMgr)
	contactHandler := rest.NewContactHandler(svcMgr)
	accountHandler := rest.NewAccountHandler(svcMgr)
	opportunityHandler := rest.NewOpportunityHandler(svcMgr)
	priceBookHandler := rest.NewPriceBookHandler(svcMgr)
	quoteHandler := rest.NewQuoteHandler(svcMgr)
	contractHandler := rest.NewContractHandler(svcMgr)
	approvalHandler := rest.NewApprovalHandler(svcMgr)
	workflowHandler := rest.NewWorkflowHandler(svcMgr)
	campaignHandler := rest.NewCampaignHandler(svcMgr)
	territoryHandler := rest.NewTerritoryHandler(svcMgr)
	notificationHandler := rest.NewNotificationHandler(svcMgr)
	taskHandler := rest.NewTaskHandler(svcMgr)
	agentHandler := rest.NewAgentHandler(svcMgr)
	emailHandler := rest.NewEmailHandler(svcMgr)

	requireAuth := middleware.RequireAuth()
	requireOrgAdmin := middleware.RequireOrgAdmin()

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
			auth.GET("/users", requireAuth, authHandler.GetUsers)
			auth.GET("/users/:id", requireAuth, authHandler.GetUser)
			auth.POST("/users", requireAuth, requireOrgAdmin, authHandler.CreateUser)
		}

		leads := api.Group("/leads")
		leads.Use(requireAuth)
		{
			leads.POST("", leadHandler.CreateLead)
			leads.GET("", leadHandler.GetLeads)
			leads.GET("/:id", leadHandler.GetLead)
			leads.PUT("/:id", leadHandler.UpdateLead)
			leads.DELETE("/:id", leadHandler.DeleteLead)
			leads.POST("/:id/convert", leadHandler.ConvertLead)
		}

		contacts := api.Group("/contacts")
		contacts.Use(requireAuth)
		{
			contacts.POST("", contactHandler.CreateContact)
			contacts.GET("", contactHandler.GetContacts)
			contacts.GET("/:id", contactHandler.GetContact)
			contacts.PUT("/:id", contactHandler.UpdateContact)
			contacts.DELETE("/:id", contactHandler.DeleteContact)
		}

		accounts := api.Group("/accounts")
		accounts.Use(requireAuth)
		{
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("", accountHandler.GetAccounts)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.PUT("/:id", accountHandler.UpdateAccount)
			accounts.DELETE("/:id", accountHandler.DeleteAccount)
		}

		opportunities := api.Group("/opportunities")
		opportunities.Use(requireAuth)
		{
			opportunities.POST("", opportunityHandler.CreateOpportunity)
			opportunities.GET("", opportunityHandler.GetOpportunities)
			opportunities.GET("/:id", opportunityHandler.GetOpportunity)
			opportunities.PUT("/:id", opportunityHandler.UpdateOpportunity)
			opportunities.DELETE("/:id", opportunityHandler.DeleteOpportunity)
			opportunities.POST("/:id/close", opportunityHandler.CloseOpportunity)
			opportunities.GET("/:id/quotes", opportunityHandler.GetOpportunityQuotes)
		}

		pricebooks := api.Group("/pricebooks")
		pricebooks.Use(requireAuth)
		{
			pricebooks.GET("", priceBookHandler.GetBooks)
			pricebooks.GET("/:id", priceBookHandler.GetBook)
			pricebooks.GET("/:id/entries", priceBookHandler.GetEntries)
			pricebooks.POST("", requireOrgAdmin, priceBookHandler.CreateBook)
			pricebooks.POST("/:id/entries", requireOrgAdmin, priceBookHandler.CreateEntry)
			pricebooks.PUT("/entries/:entryId", requireOrgAdmin, priceBookHandler.UpdateEntry)
		}

		quotes := api.Group("/quotes")
		quotes.Use(requireAuth)
		{
			quotes.POST("", quoteHandler.CreateQuote)
			quotes.GET("/:id", quoteHandler.GetQuote)
			quotes.PUT("/:id/lines", quoteHandler.RepriceQuote)
			quotes.POST("/:id/submit", quoteHandler.SubmitQuote)
			quotes.POST("/:id/present", quoteHandler.PresentQuote)
			quotes.POST("/:id/accept", quoteHandler.AcceptQuote)
			quotes.POST("/:id/rework", quoteHandler.ReworkQuote)
		}

		contracts := api.Group("/contracts")
		contracts.Use(requireAuth)
		{
			contracts.POST("", contractHandler.CreateContract)
			contracts.GET("", contractHandler.GetContracts)
			contracts.GET("/:id", contractHandler.GetContract)
			contracts.POST("/:id/submit", contractHandler.SubmitContract)
			contracts.POST("/:id/send", contractHandler.SendContract)
			contracts.POST("/:id/sign", contractHandler.SignContract)
			contracts.POST("/:id/activate", contractHandler.ActivateContract)
			contracts.POST("/:id/terminate", contractHandler.TerminateContract)
		}

		approvals := api.Group("/approvals")
		approvals.Use(requireAuth)
		{
			approvals.GET("/processes", approvalHandler.GetProcesses)
			approvals.POST("/processes", requireOrgAdmin, approvalHandler.CreateProcess)
			approvals.GET("/inbox", approvalHandler.GetInbox)
			approvals.GET("/history", approvalHandler.GetHistory)
			approvals.GET("/items/:id", approvalHandler.GetWorkItem)
			approvals.POST("/items/:id/decide", approvalHandler.Decide)
			approvals.POST("/items/:id/recall", approvalHandler.Recall)
		}

		workflows := api.Group("/workflows")
		workflows.Use(requireAuth)
		{
			workflows.GET("", workflowHandler.GetWorkflows)
			workflows.GET("/:id", workflowHandler.GetWorkflow)
			workflows.POST("", requireOrgAdmin, workflowHandler.CreateWorkflow)
			workflows.PUT("/:id", requireOrgAdmin, workflowHandler.UpdateWorkflow)
			workflows.DELETE("/:id", requireOrgAdmin, workflowHandler.DeleteWorkflow)
		}

		campaigns := api.Group("/campaigns")
		campaigns.Use(requireAuth)
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.GetCampaigns)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.PUT("/:id", campaignHandler.UpdateCampaign)
			campaigns.POST("/:id/members", campaignHandler.AddMember)
			campaigns.GET("/:id/members", campaignHandler.GetMembers)
			campaigns.POST("/:id/invites", campaignHandler.SendInvites)
			campaigns.POST("/:id/rsvp", campaignHandler.IngestReply)
			campaigns.POST("/:id/complete", campaignHandler.CompleteCampaign)
			campaigns.PUT("/members/:memberId/status", campaignHandler.SetMemberStatus)
		}

		territories := api.Group("/territories")
		territories.Use(requireAuth)
		{
			territories.GET("", territoryHandler.GetTerritories)
			territories.POST("", requireOrgAdmin, territoryHandler.CreateTerritory)
			territories.PUT("/:id", requireOrgAdmin, territoryHandler.UpdateTerritory)
			territories.DELETE("/:id", requireOrgAdmin, territoryHandler.DeleteTerritory)
		}

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
			notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.GetTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/complete", taskHandler.CompleteTask)
		}

		agents := api.Group("/agents")
		agents.Use(requireAuth)
		{
			agents.GET("", agentHandler.GetAgents)
			agents.GET("/stats", agentHandler.GetAgentStats)
			agents.POST("/:name/trigger", agentHandler.TriggerAgent)
		}

		emails := api.Group("/emails")
		emails.Use(requireAuth)
		{
			emails.GET("", emailHandler.GetHistory)
		}
	}

	return router
}
