package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/LionTheUnknown/GLIM-sub000/database"
	"github.com/LionTheUnknown/GLIM-sub000/routes"
	"github.com/LionTheUnknown/GLIM-sub000/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		log.Fatal("JWT_SECRET not set")
	}

	if firebasePath := os.Getenv("FIREBASE_CREDENTIALS_PATH"); firebasePath != "" {
		if err := services.InitFirebase(firebasePath); err != nil {
			log.Printf("Firebase init failed, push notifications disabled: %v", err)
		}
	} else {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, push notifications disabled")
	}

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	defer db.Close()

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	routes.CreateUserRoutes(db, secret, api)
	routes.CreatePostRoutes(db, secret, api)
	routes.CreateAdminRoutes(db, secret, api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("GLIM API listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
