package repository

import (
	"database/sql"
	"fmt"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// ShopRepository handles database operations for the cosmetic catalog
type ShopRepository struct {
	db database.DBTX
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db database.DBTX) *ShopRepository {
	return &ShopRepository{db: db}
}

// GetItem retrieves a catalog entry by ID
func (r *ShopRepository) GetItem(itemID string) (*models.ShopItem, error) {
	query := "SELECT id, name, price, type, value, is_premium FROM shop_items WHERE id = ?"
	item := &models.ShopItem{}
	err := r.db.QueryRow(query, itemID).Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Type,
		&item.Value,
		&item.IsPremium,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop item: %w", err)
	}
	return item, nil
}

// GetAllItems retrieves the full catalog ordered by type then price
func (r *ShopRepository) GetAllItems() ([]models.ShopItem, error) {
	query := "SELECT id, name, price, type, value, is_premium FROM shop_items ORDER BY type ASC, price ASC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop items: %w", err)
	}
	defer rows.Close()

	var items []models.ShopItem
	for rows.Next() {
		var item models.ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Type, &item.Value, &item.IsPremium); err != nil {
			return nil, fmt.Errorf("failed to scan shop item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
