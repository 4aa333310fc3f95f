package routes

import (
	"database/sql"

	"github.com/gorilla/mux"

	"github.com/LionTheUnknown/GLIM-sub000/handlers"
)

func CreateAdminRoutes(db *sql.DB, secret []byte, router *mux.Router) *mux.Router {
	router.HandleFunc("/admin/posts/{postId}", handlers.RequireAdmin(secret, handlers.AdminDeletePost(db))).Methods("DELETE")
	router.HandleFunc("/admin/posts/{postId}/revive", handlers.RequireAdmin(secret, handlers.RevivePost(db))).Methods("PATCH")
	router.HandleFunc("/admin/posts/{postId}/pin", handlers.RequireAdmin(secret, handlers.PinPost(db))).Methods("PATCH")
	router.HandleFunc("/admin/posts/{postId}/comments/{commentId}", handlers.RequireAdmin(secret, handlers.AdminDeleteComment(db))).Methods("DELETE")

	return router
}
