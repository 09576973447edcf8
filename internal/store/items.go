package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trocaroupa/trocas/internal/model"
)

// ItemInput holds the owner-editable fields of an item.
type ItemInput struct {
	Name        string
	Description string
	Category    string
	Size        string
	Condition   string
	Fabric      string
	Color       string
}

// Validate checks required fields and known enumerations.
func (in ItemInput) Validate() error {
	if in.Name == "" || in.Size == "" {
		return fmt.Errorf("%w: name and size required", model.ErrInvalidInput)
	}
	if !model.ValidCategory(in.Category) {
		return fmt.Errorf("%w: category %q", model.ErrInvalidInput, in.Category)
	}
	if !model.ValidCondition(in.Condition) {
		return fmt.Errorf("%w: condition %q", model.ErrInvalidInput, in.Condition)
	}
	return nil
}

// ItemFilter narrows ListItems. Zero values disable a filter.
type ItemFilter struct {
	OwnerID        int64
	ExcludeOwnerID int64
	Status         string
	Category       string
}

const itemSelect = `SELECT i.id, i.owner_id, i.name, i.description, i.category, i.size, i.condition,
	       i.fabric, i.color, i.image_mime, i.status_posse, i.created_at, i.updated_at, i.deleted_at,
	       u.name AS owner_name
	FROM items i
	JOIN users u ON u.id = i.owner_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, fabric, color, imageMime sql.NullString
	err := s.Scan(&item.ID, &item.OwnerID, &item.Name, &description, &item.Category, &item.Size, &item.Condition,
		&fabric, &color, &imageMime, &item.StatusPosse, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.OwnerName)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Fabric = fabric.String
	item.Color = color.String
	item.ImageMime = imageMime.String
	return item, nil
}

// CreateItem creates a new active listing owned by ownerID.
func CreateItem(ctx context.Context, db DBTX, ownerID int64, in ItemInput) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, name, description, category, size, condition, fabric, color)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, in.Name, in.Description, in.Category, in.Size, in.Condition, in.Fabric, in.Color,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, db DBTX, f ItemFilter) ([]model.Item, error) {
	query := itemSelect + ` WHERE i.deleted_at IS NULL`
	var args []any

	if f.OwnerID > 0 {
		query += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.ExcludeOwnerID > 0 {
		query += ` AND i.owner_id <> ?`
		args = append(args, f.ExcludeOwnerID)
	}
	if f.Status != "" {
		query += ` AND i.status_posse = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += ` AND i.category = ?`
		args = append(args, f.Category)
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's descriptive fields. Historic items are frozen.
func UpdateItem(ctx context.Context, db DBTX, id int64, in ItemInput) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, category = ?, size = ?, condition = ?,
		        fabric = ?, color = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status_posse <> 'historic'`,
		in.Name, in.Description, in.Category, in.Size, in.Condition, in.Fabric, in.Color, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %d is not editable", model.ErrInvalidState, id)
	}
	return nil
}

// DeleteItem soft-deletes an item. Fails while an open troca references it.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	open, err := OpenTrocaForItem(ctx, tx, id, 0)
	if err != nil {
		return err
	}
	if open != nil {
		return fmt.Errorf("%w: item %d is referenced by open troca %d", model.ErrInvalidState, id, open.ID)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status_posse = 'active'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %d is not an active listing", model.ErrInvalidState, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item deletion: %w", err)
	}
	return nil
}

// SetItemStatus sets an item's possession status and returns the updated
// item. Fails if the item does not exist.
func SetItemStatus(ctx context.Context, db DBTX, id int64, status string, now time.Time) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status_posse = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("setting item status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("setting item status: item %d not found", id)
	}
	return GetItem(ctx, db, id)
}

// SetItemImage stores an item's photo and its thumbnail.
func SetItemImage(ctx context.Context, db DBTX, id int64, image, thumb []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, thumb = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, thumb, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo (or its thumbnail) and MIME type.
func GetItemImage(ctx context.Context, db DBTX, id int64, thumb bool) ([]byte, string, error) {
	column := "image"
	if thumb {
		column = "thumb"
	}

	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+column+`, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
