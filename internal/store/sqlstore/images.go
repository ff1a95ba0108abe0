package sqlstore

import (
	"context"
	"database/sql"
	"math"
	"time"

	"storyia/internal/models"
)

const imageColumns = "id, user_id, image, thumbnail, tags, created_at"

func scanImage(row scanner) (models.ImageModel, error) {
	var img models.ImageModel
	err := row.Scan(&img.ID, &img.UserID, &img.Image, &img.Thumbnail, &img.Tags, &img.CreatedAt)
	return img, mapErr(err)
}

func (s *SQLStore) CreateImage(ctx context.Context, img *models.ImageModel) (int64, error) {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	if img.Tags == nil {
		img.Tags = models.Tags{}
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO images (user_id, image, thumbnail, tags, created_at) VALUES (?, ?, ?, ?, ?)",
		img.UserID, img.Image, img.Thumbnail, img.Tags, img.CreatedAt)
	if err != nil {
		return 0, err
	}
	img.ID = id
	return id, nil
}

func (s *SQLStore) GetImage(ctx context.Context, userID, id int64) (models.ImageModel, error) {
	return scanImage(s.db.QueryRowContext(ctx, s.rebind("SELECT "+imageColumns+" FROM images WHERE id = ? AND user_id = ?"), id, userID))
}

// ListImages orders in SQL and applies the tag filters in Go, since tags are
// an opaque JSON document in both dialects.
func (s *SQLStore) ListImages(ctx context.Context, userID int64, f models.ImageFilter) ([]models.ImageModel, error) {
	order, ok := models.ImageSorts[f.SortBy]
	if !ok {
		order = models.ImageSorts["-created_at"]
	}
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+imageColumns+" FROM images WHERE user_id = ? ORDER BY "+order), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []models.ImageModel{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		if f.Match(img) {
			images = append(images, img)
		}
	}
	return images, rows.Err()
}

// MergeImageTags adds tags to the image, keeping keys it does not mention.
func (s *SQLStore) MergeImageTags(ctx context.Context, userID, id int64, tags models.Tags) (models.ImageModel, error) {
	var img models.ImageModel
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		img, err = scanImage(tx.QueryRowContext(ctx, s.rebind("SELECT "+imageColumns+" FROM images WHERE id = ? AND user_id = ?"), id, userID))
		if err != nil {
			return err
		}
		img.Tags = img.Tags.Merge(tags)
		return s.exec(ctx, tx, "UPDATE images SET tags = ? WHERE id = ?", img.Tags, id)
	})
	return img, err
}

// DeleteImage removes the row and returns it so the caller can drop files.
func (s *SQLStore) DeleteImage(ctx context.Context, userID, id int64) (models.ImageModel, error) {
	img, err := s.GetImage(ctx, userID, id)
	if err != nil {
		return img, err
	}
	return img, s.exec(ctx, s.db, "DELETE FROM images WHERE id = ? AND user_id = ?", id, userID)
}

func (s *SQLStore) ImageStats(ctx context.Context, userID int64) (models.ImageStats, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT tags FROM images WHERE user_id = ?"), userID)
	if err != nil {
		return models.ImageStats{}, err
	}
	var stats models.ImageStats
	faces := 0
	for rows.Next() {
		var tags models.Tags
		if err := rows.Scan(&tags); err != nil {
			rows.Close()
			return stats, err
		}
		stats.TotalImages++
		faces += tags.FaceCount()
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return stats, err
	}

	if stats.GeneratedImages, err = s.count(ctx, "SELECT COUNT(*) FROM generated_images WHERE user_id = ?", userID); err != nil {
		return stats, err
	}
	if stats.TotalImages > 0 {
		stats.AverageFacesPerImage = math.Round(float64(faces)/float64(stats.TotalImages)*100) / 100
	}
	return stats, nil
}

func (s *SQLStore) CreateGenerated(ctx context.Context, g *models.GeneratedImage) (int64, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO generated_images (user_id, description, image, created_at) VALUES (?, ?, ?, ?)",
		g.UserID, g.Description, g.Image, g.CreatedAt)
	if err != nil {
		return 0, err
	}
	g.ID = id
	return id, nil
}

func (s *SQLStore) ListGenerated(ctx context.Context, userID int64) ([]models.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT id, user_id, description, image, created_at FROM generated_images WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.GeneratedImage{}
	for rows.Next() {
		var g models.GeneratedImage
		if err := rows.Scan(&g.ID, &g.UserID, &g.Description, &g.Image, &g.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (s *SQLStore) DeleteGenerated(ctx context.Context, userID, id int64) (models.GeneratedImage, error) {
	var g models.GeneratedImage
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT id, user_id, description, image, created_at FROM generated_images WHERE id = ? AND user_id = ?"), id, userID).
		Scan(&g.ID, &g.UserID, &g.Description, &g.Image, &g.CreatedAt)
	if err != nil {
		return g, mapErr(err)
	}
	return g, s.exec(ctx, s.db, "DELETE FROM generated_images WHERE id = ? AND user_id = ?", id, userID)
}
