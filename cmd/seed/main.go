package main

import (
	"context"
	"errors"
	"log"

	"accountd/internal/auth"
	"accountd/internal/config"
	"accountd/internal/db"
	apperrors "accountd/internal/errors"
	"accountd/internal/model"
	"accountd/internal/repository"
)

// seedUser is one demo account created by the seed script.
type seedUser struct {
	Username string
	Email    string
	Password string
}

var seedUsers = []seedUser{
	{Username: "alice", Email: "alice@example.com", Password: "password1"},
	{Username: "bob", Email: "bob@example.com", Password: "password2"},
	{Username: "carol", Email: "carol@example.com", Password: "password3"},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.SessionToken{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	users := repository.NewUserRepository(gormDB)
	hasher := auth.NewPasswordHasher()

	ctx := context.Background()
	created, skipped := 0, 0
	for _, seed := range seedUsers {
		hash, err := hasher.Hash(seed.Password)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", seed.Email, err)
		}
		user := &model.User{
			Username:     seed.Username,
			Email:        seed.Email,
			PasswordHash: hash,
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, apperrors.ErrEmailTaken) {
				log.Printf("Skipping %s: already registered", seed.Email)
				skipped++
				continue
			}
			log.Fatalf("Failed to create %s: %v", seed.Email, err)
		}
		created++
	}

	log.Printf("Seed complete: %d created, %d skipped", created, skipped)
}
