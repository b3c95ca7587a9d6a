package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Room represents a fundraising campaign: a gift for a receiver with a
// price to collect. All money fields are integral minor currency units
// (cents), never floats.
type Room struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Receiver    string `gorm:"size:50;not null"`
	CreatorID   *uint  `gorm:"index"`
	Creator     *User  `gorm:"foreignKey:CreatorID"`
	Gift        string `gorm:"size:50;not null"`
	GiftURL     string `gorm:"size:255"`
	Description string `gorm:"size:250"`
	Price       int64  `gorm:"not null"`
	ToCollect   int64  `gorm:"not null;index"`
	Visible     bool   `gorm:"not null;index"`
	IsActive    bool   `gorm:"not null;default:true"`
	Score       float64
	Created     datatypes.Date
	DateExpires datatypes.Date `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Guests    []User     `gorm:"many2many:room_guests"`
	Observers []User     `gorm:"many2many:room_observers"`
	Donations []Donation `gorm:"foreignKey:RoomID"`
	Posts     []Post     `gorm:"foreignKey:RoomID"`
}

// Donation is one append-only ledger entry against a room. Amount holds
// the clamped value actually applied, never the raw request amount.
type Donation struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	UserID    uint `gorm:"index;not null"`
	User      User `gorm:"foreignKey:UserID"`
	RoomID    uint `gorm:"index;not null"`
	Date      datatypes.Date `gorm:"index"`
	Amount    int64          `gorm:"not null"`
	Comment   string         `gorm:"size:250"`
	CreatedAt time.Time
}

// Message is a private note between two users. Independent of the
// donation core.
type Message struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	SenderID   uint `gorm:"index;not null"`
	ReceiverID uint `gorm:"index;not null"`
	Subject    string `gorm:"size:150;not null"`
	Content    string `gorm:"size:255;not null"`
	CreatedAt  time.Time
}

// Collected returns the amount already raised.
func (r *Room) Collected() int64 {
	return r.Price - r.ToCollect
}

// PercentLeft returns ToCollect as a percentage of Price.
// Errors on a zero price instead of dividing.
func (r *Room) PercentLeft() (float64, error) {
	if r.Price == 0 {
		return 0, fmt.Errorf("zero price")
	}
	return float64(r.ToCollect) / float64(r.Price) * 100, nil
}

// PercentGot returns the complement of PercentLeft.
func (r *Room) PercentGot() (float64, error) {
	left, err := r.PercentLeft()
	if err != nil {
		return 0, err
	}
	return 100 - left, nil
}

// TableName overrides the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// TableName overrides the table name for Donation
func (Donation) TableName() string {
	return "donations"
}

// TableName overrides the table name for Message
func (Message) TableName() string {
	return "messages"
}
