// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/vkazarin/stavka/internal/auth"
	"github.com/vkazarin/stavka/internal/cache"
	"github.com/vkazarin/stavka/internal/database"
	"github.com/vkazarin/stavka/internal/handlers"
	"github.com/vkazarin/stavka/internal/lobby"
	"github.com/vkazarin/stavka/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		// The audit journal is best-effort; the engine runs without it.
		logger.WithError(err).Warn("redis unavailable, action journal disabled")
	}

	manager := lobby.NewManager(database.NewLobbyStore(database.DB), logger)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// lobby endpoints
	logged := middleware.LogMiddleware(logger)
	mux.Handle("/lobby/create", logged(handlers.CreateLobbyHandler(manager)))
	mux.Handle("/lobby/join", logged(handlers.JoinLobbyHandler(manager)))
	mux.Handle("/lobby/leave", logged(handlers.LeaveLobbyHandler(manager)))
	mux.Handle("/lobby/start", logged(handlers.StartLobbyHandler(manager)))
	mux.Handle("/lobby/state", logged(handlers.StateHandler(manager)))
	mux.Handle("/lobby/list", logged(handlers.ListLobbiesHandler(manager)))
	mux.Handle("/lobby/action", logged(handlers.ActionHandler(manager)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
