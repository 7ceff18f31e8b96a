package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	identityapp "github.com/estudiomd/backoffice/internal/application/identity"
	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/estudiomd/backoffice/internal/infrastructure/logger"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// passwordEnv keeps the password out of the shell history
const passwordEnv = "BACKOFFICE_NEW_USER_PASSWORD"

func main() {
	var req identityapp.CreateUserRequest
	flag.StringVar(&req.Email, "email", "", "Email address used to log in")
	flag.StringVar(&req.FullName, "name", "", "Full name")
	flag.StringVar(&req.Role, "role", "worker", "Role: admin or worker")
	flag.Parse()
	req.Password = os.Getenv(passwordEnv)

	log, err := logger.New(&logger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	if err := v.Struct(req); err != nil {
		log.Fatal("Invalid user", zap.Error(err), zap.String("password_from", passwordEnv))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := identityapp.NewUserService(persistence.NewGormUserRepository(db.DB), log)
	user, err := users.Create(ctx, req)
	if err != nil {
		log.Fatal("Failed to create user", zap.Error(err))
	}
	fmt.Printf("created %s (%s) %s\n", user.Email, user.Role, user.ID)
}
