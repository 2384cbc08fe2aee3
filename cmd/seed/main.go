package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/eternaldev/recipe-backend/config"
	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/internal/db"
	"github.com/eternaldev/recipe-backend/pkg/util"
	"gorm.io/gorm"
)

type seedUser struct {
	email    string
	username string
	password string
	role     model.UserRole
}

var devUsers = []seedUser{
	{email: "admin@example.com", username: "admin", password: "admin1234", role: model.RoleAdmin},
	{email: "cook@example.com", username: "cook", password: "cook1234", role: model.RoleUser},
}

func main() {
	xlsxPath := flag.String("xlsx", "", "optional .xlsx file with recipes to import instead of the built-in catalog")
	tokenFor := flag.String("token-for", "cook@example.com", "print a development access token for this seeded user (empty to skip)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	database, err := db.Connect(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(database)
	users, err := seedUsers(ctx, userRepo)
	if err != nil {
		log.Fatal("Failed to seed users:", err)
	}

	recipes := db.DefaultRecipes()
	if *xlsxPath != "" {
		fmt.Printf("Reading XLSX file: %s\n", *xlsxPath)
		var skipped int
		recipes, skipped, err = db.ReadRecipesFromXLSX(*xlsxPath)
		if err != nil {
			log.Fatal("Failed to read XLSX:", err)
		}
		fmt.Printf("Rows skipped (missing title or bad price): %d\n", skipped)
	}

	fmt.Printf("Total recipes to import: %d\n", len(recipes))
	stats, err := db.SeedCatalog(database, recipes)
	if err != nil {
		log.Fatal("Failed to seed catalog:", err)
	}

	fmt.Println("Seed completed successfully!")
	fmt.Printf("Categories created: %d\n", stats.Categories)
	fmt.Printf("Recipes created: %d\n", stats.Recipes)
	fmt.Printf("Recipes already present: %d\n", stats.Skipped)

	if *tokenFor == "" {
		return
	}
	user, ok := users[*tokenFor]
	if !ok {
		log.Fatalf("No seeded user with email %s", *tokenFor)
	}
	token, err := util.GenerateAccessToken(user.ID, user.Email, string(user.Role), cfg.JWT.Secret, cfg.JWT.DevTokenExpiry)
	if err != nil {
		log.Fatal("Failed to generate token:", err)
	}
	fmt.Printf("\nAccess token for %s (valid %s):\n%s\n", user.Email, cfg.JWT.DevTokenExpiry, token)
}

// seedUsers creates the development accounts that do not exist yet and
// returns all of them keyed by email.
func seedUsers(ctx context.Context, repo repository.UserRepository) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(devUsers))
	for _, u := range devUsers {
		existing, err := repo.FindByEmail(ctx, u.email)
		if err == nil {
			users[u.email] = existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		hash, err := util.HashPassword(u.password)
		if err != nil {
			return nil, err
		}
		user := &model.User{
			Email:        u.email,
			Username:     u.username,
			PasswordHash: hash,
			Role:         u.role,
		}
		if err := repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create %s: %w", u.email, err)
		}
		fmt.Printf("Created user %s (%s)\n", u.email, u.role)
		users[u.email] = user
	}
	return users, nil
}
