package storage

import (
	"cherrypick/client/internal/models"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// HistoryCache keeps the last fetched history of each room.
type HistoryCache struct {
	DB *gorm.DB
}

// OpenHistoryCache opens a postgres database for postgres:// DSNs and a
// sqlite file for anything else, then migrates the cache table.
func OpenHistoryCache(dsn string) (*HistoryCache, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open history cache: %w", err)
	}
	return NewHistoryCache(db)
}

// NewHistoryCache wraps an already opened database.
func NewHistoryCache(db *gorm.DB) (*HistoryCache, error) {
	if err := db.AutoMigrate(&models.ChatHistory{}); err != nil {
		return nil, fmt.Errorf("migrate history cache: %w", err)
	}
	return &HistoryCache{DB: db}, nil
}

// SaveHistory replaces everything cached for the room with msgs.
func (c *HistoryCache) SaveHistory(roomID int64, msgs []models.ChatMessage) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("room_id = ?", roomID).Delete(&models.ChatHistory{}).Error; err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}

		rows := make([]models.ChatHistory, 0, len(msgs))
		for _, msg := range msgs {
			row := models.NewChatHistory(msg)
			row.RoomID = roomID
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			log.Printf("ERROR: Failed to cache history for room %d: %v", roomID, err)
			return err
		}
		return nil
	})
}

// LoadHistory returns the cached messages of a room in creation order.
// An empty slice means nothing was cached.
func (c *HistoryCache) LoadHistory(roomID int64) ([]models.ChatMessage, error) {
	var rows []models.ChatHistory
	if err := c.DB.Where("room_id = ?", roomID).Order("sent_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	msgs := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.ToMessage())
	}
	return msgs, nil
}

func (c *HistoryCache) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
