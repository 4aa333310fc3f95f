package routes

import (
	"database/sql"

	"github.com/gorilla/mux"

	"github.com/LionTheUnknown/GLIM-sub000/handlers"
)

func CreateUserRoutes(db *sql.DB, secret []byte, router *mux.Router) *mux.Router {
	router.HandleFunc("/users/register", handlers.Register(db)).Methods("POST")
	router.HandleFunc("/users/login", handlers.Login(db, secret)).Methods("POST")
	router.HandleFunc("/users/refresh", handlers.Refresh(db, secret)).Methods("POST")
	router.HandleFunc("/users/me", handlers.AuthenticateToken(secret, handlers.Me(db))).Methods("GET")
	router.HandleFunc("/users/me", handlers.AuthenticateToken(secret, handlers.UpdateMe(db))).Methods("PUT")
	router.HandleFunc("/users/me/fcm-token", handlers.AuthenticateToken(secret, handlers.RegisterFCMToken(db))).Methods("POST")
	router.HandleFunc("/users/{userId}", handlers.GetUserByID(db)).Methods("GET")

	return router
}
