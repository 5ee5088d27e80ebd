// Package gorm provides GORM model definitions and SQL-backed stores
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"gorm.io/gorm"
)

// QuotaModel represents the GORM model for daily quota counters
type QuotaModel struct {
	QuotaKey  string    `gorm:"type:varchar(255);primaryKey"`
	Identity  string    `gorm:"type:varchar(255);not null;index"`
	Date      string    `gorm:"type:char(10);not null;index"`
	Count     int       `gorm:"not null;default:0"`
	Tier      string    `gorm:"type:varchar(20)"`
	UpdatedAt time.Time
}

// TableName overrides the table name
func (QuotaModel) TableName() string {
	return "quota_records"
}

func (m QuotaModel) toDomain() *quota.Record {
	return &quota.Record{
		Key:       m.QuotaKey,
		Identity:  m.Identity,
		Date:      m.Date,
		Count:     m.Count,
		Tier:      quota.Tier(m.Tier),
		UpdatedAt: m.UpdatedAt,
	}
}

// RecipeModel represents the GORM model for stored recipes
type RecipeModel struct {
	ID          string      `gorm:"type:varchar(64);primaryKey"`
	Title       string      `gorm:"type:varchar(255);not null"`
	Servings    int         `gorm:"default:0"`
	Ingredients EntryList   `gorm:"type:json"`
	Steps       StringSlice `gorm:"type:json"`
	Tags        StringSlice `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name
func (RecipeModel) TableName() string {
	return "recipes"
}

func (m RecipeModel) toDomain() *recipe.StoredRecipe {
	return &recipe.StoredRecipe{
		ID:          m.ID,
		Title:       m.Title,
		Servings:    m.Servings,
		Ingredients: []recipe.IngredientEntry(m.Ingredients),
		Steps:       []string(m.Steps),
		Tags:        []string(m.Tags),
	}
}

// RecipeToModel converts a stored recipe into its GORM model
func RecipeToModel(r recipe.StoredRecipe) *RecipeModel {
	return &RecipeModel{
		ID:          r.ID,
		Title:       r.Title,
		Servings:    r.Servings,
		Ingredients: EntryList(r.Ingredients),
		Steps:       StringSlice(r.Steps),
		Tags:        StringSlice(r.Tags),
	}
}

// Models lists every model for auto-migration
func Models() []interface{} {
	return []interface{}{&QuotaModel{}, &RecipeModel{}}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// StringSlice custom type for handling string slices in JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	return scanJSON(value, s, func() { *s = StringSlice{} })
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// EntryList stores ingredient entries, including headings, as a JSON array
type EntryList []recipe.IngredientEntry

// Scan implements the sql.Scanner interface
func (e *EntryList) Scan(value interface{}) error {
	return scanJSON(value, e, func() { *e = EntryList{} })
}

// Value implements the driver.Valuer interface
func (e EntryList) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]recipe.IngredientEntry(e))
	return string(b), err
}

func scanJSON(value interface{}, dst interface{}, empty func()) error {
	switch v := value.(type) {
	case nil:
		empty()
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
}
