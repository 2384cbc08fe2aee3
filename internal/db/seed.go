package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedRecipe is one catalog row as read from a seed source.
type SeedRecipe struct {
	Title        string
	Category     string
	Price        decimal.Decimal
	Servings     int
	PrepTime     int
	CookTime     int
	Description  string
	Ingredients  string
	Instructions string
	Tags         []string
	ImageURL     string
}

// SeedStats reports what SeedCatalog wrote.
type SeedStats struct {
	Categories int
	Recipes    int
	Skipped    int
}

// DefaultRecipes is the built-in development catalog.
func DefaultRecipes() []SeedRecipe {
	price := decimal.RequireFromString
	return []SeedRecipe{
		{Title: "Spaghetti Carbonara", Category: "Pasta", Price: price("9.99"), Servings: 2, PrepTime: 10, CookTime: 15,
			Description: "Eggs, pecorino and guanciale", Ingredients: "spaghetti, eggs, pecorino, guanciale, pepper", Tags: []string{"italian", "quick"}},
		{Title: "Lemon Garlic Salad", Category: "Salads", Price: price("5.00"), Servings: 1, PrepTime: 10,
			Description: "Crisp greens with a sharp dressing", Ingredients: "lettuce, lemon, garlic, olive oil", Tags: []string{"vegetarian"}},
		{Title: "Chicken Pho", Category: "Soups", Price: price("11.50"), Servings: 4, PrepTime: 30, CookTime: 120,
			Description: "Slow simmered broth with rice noodles", Ingredients: "chicken, star anise, ginger, rice noodles", Tags: []string{"vietnamese"}},
		{Title: "Seafood Paella", Category: "Rice", Price: price("18.25"), Servings: 4, PrepTime: 20, CookTime: 40,
			Description: "Saffron rice with mussels and prawns", Ingredients: "bomba rice, saffron, mussels, prawns", Tags: []string{"spanish"}},
		{Title: "Banana Bread", Category: "Baking", Price: price("4.75"), Servings: 8, PrepTime: 15, CookTime: 60,
			Description: "Moist loaf for overripe bananas", Ingredients: "bananas, flour, butter, sugar, eggs", Tags: []string{"dessert", "vegetarian"}},
	}
}

// SeedCatalog inserts categories and recipes. Existing categories are reused
// and recipes whose title is already present are skipped, so it can be rerun.
func SeedCatalog(database *gorm.DB, recipes []SeedRecipe) (SeedStats, error) {
	var stats SeedStats

	err := database.Transaction(func(tx *gorm.DB) error {
		categoryIDs := make(map[string]uint)

		for _, r := range recipes {
			var categoryID *uint
			if name := strings.TrimSpace(r.Category); name != "" {
				key := strings.ToLower(name)
				id, ok := categoryIDs[key]
				if !ok {
					category := model.Category{Name: name}
					res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&category)
					if res.Error != nil {
						return fmt.Errorf("create category %q: %w", name, res.Error)
					}
					if res.RowsAffected > 0 {
						stats.Categories++
					}
					if err := tx.Where("name = ?", name).First(&category).Error; err != nil {
						return fmt.Errorf("load category %q: %w", name, err)
					}
					id = category.ID
					categoryIDs[key] = id
				}
				categoryID = &id
			}

			var existing int64
			if err := tx.Model(&model.Recipe{}).Where("title = ?", r.Title).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				stats.Skipped++
				continue
			}

			servings := r.Servings
			if servings < 1 {
				servings = 1
			}
			recipe := model.Recipe{
				Title:        r.Title,
				Description:  r.Description,
				Instructions: r.Instructions,
				Ingredients:  r.Ingredients,
				PrepTime:     r.PrepTime,
				CookTime:     r.CookTime,
				Servings:     servings,
				Price:        r.Price,
				CategoryID:   categoryID,
				Tags:         model.StringArray(r.Tags),
				ImageURL:     r.ImageURL,
			}
			if err := tx.Create(&recipe).Error; err != nil {
				return fmt.Errorf("create recipe %q: %w", r.Title, err)
			}
			stats.Recipes++
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}

	logger.Info("Catalog seeded", map[string]interface{}{
		"categories": stats.Categories,
		"recipes":    stats.Recipes,
		"skipped":    stats.Skipped,
	})
	return stats, nil
}

var seedColumns = []string{
	"title", "category", "price", "servings", "prep_time", "cook_time",
	"description", "ingredients", "instructions", "tags", "image_url",
}

// ReadRecipesFromXLSX reads the first sheet of an .xlsx file. The first row
// is a header naming the columns (title and price are required, the rest of
// seedColumns are optional, order does not matter). Rows without a title or
// with an unparseable price are skipped and counted.
func ReadRecipesFromXLSX(filePath string) ([]SeedRecipe, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, errors.New("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, errors.New("no data found in XLSX file")
	}

	index := make(map[string]int)
	for i, header := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, required := range []string{"title", "price"} {
		if _, ok := index[required]; !ok {
			return nil, 0, fmt.Errorf("missing required column %q", required)
		}
	}

	var recipes []SeedRecipe
	skipped := 0
	for _, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		title := cell("title")
		price, err := decimal.NewFromString(cell("price"))
		if title == "" || err != nil || price.IsNegative() {
			skipped++
			continue
		}

		recipes = append(recipes, SeedRecipe{
			Title:        title,
			Category:     cell("category"),
			Price:        price.Round(2),
			Servings:     atoiOrZero(cell("servings")),
			PrepTime:     atoiOrZero(cell("prep_time")),
			CookTime:     atoiOrZero(cell("cook_time")),
			Description:  cell("description"),
			Ingredients:  cell("ingredients"),
			Instructions: cell("instructions"),
			Tags:         splitTags(cell("tags")),
			ImageURL:     cell("image_url"),
		})
	}

	return recipes, skipped, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func splitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.ToLower(strings.TrimSpace(part)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
