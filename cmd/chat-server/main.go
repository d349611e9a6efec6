package main

import (
	"chat-rooms-backend/internal/api"
	"chat-rooms-backend/internal/api/router"
	"chat-rooms-backend/internal/chat"
	"chat-rooms-backend/internal/database"
	"chat-rooms-backend/internal/env"
	"chat-rooms-backend/internal/queue"
	"chat-rooms-backend/internal/registry"
	authservice "chat-rooms-backend/internal/service/auth"
	roomservice "chat-rooms-backend/internal/service/room"
	"context"
	"log"
)

func main() {
	env.MustValidate()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	reg := registry.New()
	authSvc := authservice.New(db, authservice.PolicyFromEnv())
	roomSvc := roomservice.New(db)
	handler := chat.NewHandler(reg, authSvc, roomSvc)

	ctx := context.Background()
	admin, err := authSvc.EnsureAdmin(ctx)
	if err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}
	if err := roomSvc.CreateDefaultRooms(ctx, admin.UserID); err != nil {
		log.Fatalf("default rooms bootstrap failed: %v", err)
	}

	server := api.NewAPIServer(
		env.GetOrDefault(env.ListenAddr, ":8080"),
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/v1"),
		router.AuthRoutes("/api/v1", authSvc),
		router.ChatRoutes(""),
	)

	server.Run()
}
