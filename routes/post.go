package routes

import (
	"database/sql"

	"github.com/gorilla/mux"

	"github.com/LionTheUnknown/GLIM-sub000/handlers"
)

func CreatePostRoutes(db *sql.DB, secret []byte, router *mux.Router) *mux.Router {
	// Reads work anonymously; a bearer token adds the caller's own
	// reaction state to the response.
	router.HandleFunc("/posts", handlers.OptionalAuthenticateToken(secret, handlers.GetPosts(db))).Methods("GET")
	router.HandleFunc("/posts", handlers.AuthenticateToken(secret, handlers.CreatePost(db))).Methods("POST")
	router.HandleFunc("/posts/{postId}", handlers.OptionalAuthenticateToken(secret, handlers.GetPost(db))).Methods("GET")
	router.HandleFunc("/posts/{postId}", handlers.AuthenticateToken(secret, handlers.UpdatePost(db))).Methods("PUT")
	router.HandleFunc("/posts/{postId}", handlers.AuthenticateToken(secret, handlers.DeletePost(db))).Methods("DELETE")

	router.HandleFunc("/posts/{postId}/comments", handlers.OptionalAuthenticateToken(secret, handlers.GetPostComments(db))).Methods("GET")
	router.HandleFunc("/posts/{postId}/comments", handlers.AuthenticateToken(secret, handlers.CreateComment(db))).Methods("POST")
	router.HandleFunc("/posts/{postId}/comments/{commentId}", handlers.AuthenticateToken(secret, handlers.UpdateComment(db))).Methods("PUT")
	router.HandleFunc("/posts/{postId}/comments/{commentId}", handlers.AuthenticateToken(secret, handlers.DeleteComment(db))).Methods("DELETE")

	router.HandleFunc("/posts/{postId}/reactions", handlers.GetPostReactions(db)).Methods("GET")
	router.HandleFunc("/posts/{postId}/reactions", handlers.AuthenticateToken(secret, handlers.TogglePostReaction(db))).Methods("POST")
	router.HandleFunc("/posts/{postId}/reactions", handlers.AuthenticateToken(secret, handlers.RemovePostReaction(db))).Methods("DELETE")

	router.HandleFunc("/comments/{commentId}/reactions", handlers.GetCommentReactions(db)).Methods("GET")
	router.HandleFunc("/comments/{commentId}/reactions", handlers.AuthenticateToken(secret, handlers.ToggleCommentReaction(db))).Methods("POST")
	router.HandleFunc("/comments/{commentId}/reactions", handlers.AuthenticateToken(secret, handlers.RemoveCommentReaction(db))).Methods("DELETE")

	router.HandleFunc("/categories", handlers.GetCategories(db)).Methods("GET")
	router.HandleFunc("/categories", handlers.RequireAdmin(secret, handlers.CreateCategory(db))).Methods("POST")

	return router
}
