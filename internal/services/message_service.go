package services

import (
	"fmt"

	"github.com/localnerve/giftroom/internal/models"
	"gorm.io/gorm"
)

// MessageInput carries the fields for sending a private message.
type MessageInput struct {
	SenderID   uint
	ReceiverID uint
	Subject    string
	Content    string
}

// CreateMessage stores a private note between two users. A user cannot
// message themselves.
func CreateMessage(db *gorm.DB, in MessageInput) (*models.Message, error) {
	if in.SenderID == 0 || in.ReceiverID == 0 || in.Subject == "" || in.Content == "" {
		return nil, fmt.Errorf("missing field")
	}
	if in.SenderID == in.ReceiverID {
		return nil, fmt.Errorf("sender equals receiver")
	}
	if _, err := requireUser(db, in.SenderID); err != nil {
		return nil, err
	}
	if _, err := requireUser(db, in.ReceiverID); err != nil {
		return nil, err
	}

	message := models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Subject:    in.Subject,
		Content:    in.Content,
	}
	if err := db.Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessages lists the messages addressed to a user, newest first.
func GetMessages(db *gorm.DB, receiverID uint) ([]models.Message, error) {
	if _, err := requireUser(db, receiverID); err != nil {
		return nil, err
	}
	var messages []models.Message
	err := db.Where("receiver_id = ?", receiverID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	return messages, err
}
