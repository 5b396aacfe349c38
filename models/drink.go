package models

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DrinkIngredient struct {
	Ingredient string  `bson:"ingredient" json:"ingredient"`
	Quantity   float64 `bson:"quantity" json:"quantity"`
	Unit       string  `bson:"unit" json:"unit"`
	Optional   bool    `bson:"optional" json:"optional"`
	Order      int     `bson:"order" json:"order"`
}

// Drink is the typed view of a stored drink document.
type Drink struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	NameEn        string             `bson:"name_en" json:"name_en"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description" json:"description"`
	DescriptionEn string             `bson:"description_en" json:"description_en"`
	ImageURL      string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ThumbnailURL  string             `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	Difficulty    string             `bson:"difficulty" json:"difficulty"`
	AlcoholLevel  string             `bson:"alcohol_level" json:"alcohol_level"`
	PrepTime      *int               `bson:"prep_time" json:"prep_time"`
	Servings      *int               `bson:"servings" json:"servings"`
	Ingredients   []DrinkIngredient  `bson:"ingredients" json:"ingredients"`
	Utensils      []string           `bson:"utensils" json:"utensils"`
	Steps         []string           `bson:"steps" json:"steps"`
	Tips          []string           `bson:"tips" json:"tips"`
	Tags          []string           `bson:"tags" json:"tags"`
	Categories    []string           `bson:"categories" json:"categories"`
	Occasions     []string           `bson:"occasions" json:"occasions"`
	FlavorProfile map[string]int     `bson:"flavor_profile" json:"flavor_profile"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
	CreatedBy     string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
}

// DrinkFromDoc decodes a stored document. Ingredients come back in their
// display order.
func DrinkFromDoc(doc bson.M) (Drink, error) {
	var d Drink
	raw, err := bson.Marshal(doc)
	if err != nil {
		return d, fmt.Errorf("encode drink: %w", err)
	}
	if err := bson.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("decode drink: %w", err)
	}
	sort.SliceStable(d.Ingredients, func(i, j int) bool { return d.Ingredients[i].Order < d.Ingredients[j].Order })
	return d, nil
}
