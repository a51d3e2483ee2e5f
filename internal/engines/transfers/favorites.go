package transfers

import (
	"context"
	"fmt"

	"github.com/bellybank/bellybank/internal/models"
)

// Default tile colors for newly saved favorites.
const (
	defaultColorStart = "#FFA726"
	defaultColorEnd   = "#FB8C00"
)

// ListFavorites returns the saved transfer destinations of a user.
func (e *Engine) ListFavorites(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	query := `
		SELECT id, user_id, name, value, type, color_start, color_end
		FROM favorites
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := e.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*models.Favorite, 0)
	for rows.Next() {
		fav := &models.Favorite{}
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.Name, &fav.Value, &fav.Type, &fav.ColorStart, &fav.ColorEnd); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}

	return favorites, nil
}

// AddFavorite saves a transfer destination with the default tile colors.
func (e *Engine) AddFavorite(ctx context.Context, userID int64, name, value, favType string) (*models.Favorite, error) {
	fav := &models.Favorite{
		UserID:     userID,
		Name:       name,
		Value:      value,
		Type:       favType,
		ColorStart: defaultColorStart,
		ColorEnd:   defaultColorEnd,
	}

	query := `
		INSERT INTO favorites (user_id, name, value, type, color_start, color_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := e.db.QueryRow(ctx, query,
		fav.UserID, fav.Name, fav.Value, fav.Type, fav.ColorStart, fav.ColorEnd).Scan(&fav.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert favorite: %w", err)
	}

	return fav, nil
}

// DeleteFavorite removes a saved destination. Deleting a favorite that does
// not exist (or belongs to someone else) is a no-op.
func (e *Engine) DeleteFavorite(ctx context.Context, userID, favoriteID int64) error {
	_, err := e.db.Exec(ctx, `DELETE FROM favorites WHERE id = $1 AND user_id = $2`, favoriteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}
