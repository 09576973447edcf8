package model

import (
	"slices"
	"time"
)

// Item is a clothing listing owned by a user.
type Item struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Size        string     `json:"size"`
	Condition   string     `json:"condition"`
	Fabric      string     `json:"fabric,omitempty"`
	Color       string     `json:"color,omitempty"`
	ImageMime   string     `json:"image_mime,omitempty"`
	StatusPosse string     `json:"status_posse"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	OwnerName string `json:"owner_name,omitempty"`
}

// Possession statuses. Only the exchange engine moves an item between them.
const (
	ItemStatusActive     = "active"
	ItemStatusInExchange = "in_exchange"
	ItemStatusHistoric   = "historic"
)

// Item categories.
var Categories = []string{
	"camisa",
	"camiseta",
	"calca",
	"saia",
	"vestido",
	"casaco",
	"calcado",
	"acessorio",
	"outro",
}

// Item conditions.
var Conditions = []string{
	"novo",
	"seminovo",
	"usado",
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// ValidCondition reports whether c is a known condition.
func ValidCondition(c string) bool {
	return slices.Contains(Conditions, c)
}

// Available reports whether the item can be offered or requested in a new troca.
func (i *Item) Available() bool {
	return i.DeletedAt == nil && i.StatusPosse == ItemStatusActive
}
