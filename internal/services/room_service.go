// room_service.go
//
// A gift crowdfunding and discussion data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of giftroom.
// giftroom is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// giftroom is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with giftroom.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"fmt"
	"time"

	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// Campaign expiry window carried over from the registration rules:
// a room may not run longer than half a year.
const maxCampaignDays = 183

// DonationInput is the caller contract for Donate. UserID and Amount are
// required; Date defaults to today, Comment to the formatted raw amount.
type DonationInput struct {
	UserID  uint
	Amount  int64
	Date    *time.Time
	Comment string
}

// RoomInput carries the fields for room creation.
type RoomInput struct {
	Receiver    string
	CreatorID   *uint
	Gift        string
	GiftURL     string
	Description string
	Price       int64
	Visible     bool
	DateExpires time.Time
}

// PatronTotal is one row of a per-room patron ranking.
type PatronTotal struct {
	Username string `json:"username"`
	Total    int64  `json:"total"`
}

// RoomRank decorates a room with its ranking annotation.
type RoomRank struct {
	models.Room
	PatronsNumber int64 `json:"patrons_number" gorm:"column:patrons_number"`
}

// ChartData is the per-date donation sum series for a room.
type ChartData struct {
	Categories []string `json:"categories"`
	Data       []int64  `json:"data"`
}

// CreateRoom validates and persists a new campaign. ToCollect is seeded
// to the full price; nothing has been collected yet.
func CreateRoom(db *gorm.DB, in RoomInput) (*models.Room, error) {
	if in.Receiver == "" || in.Gift == "" {
		return nil, fmt.Errorf("missing field")
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	today := time.Now().Truncate(24 * time.Hour)
	expires := in.DateExpires.Truncate(24 * time.Hour)
	if !expires.After(today) || expires.After(today.AddDate(0, 0, maxCampaignDays)) {
		return nil, fmt.Errorf("expiry window")
	}

	room := models.Room{
		Receiver:    in.Receiver,
		CreatorID:   in.CreatorID,
		Gift:        in.Gift,
		GiftURL:     in.GiftURL,
		Description: in.Description,
		Price:       in.Price,
		ToCollect:   in.Price,
		Visible:     in.Visible,
		IsActive:    true,
		Created:     datatypes.Date(today),
		DateExpires: datatypes.Date(expires),
	}
	if err := db.Create(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoom fetches one room with its creator preloaded.
func GetRoom(db *gorm.DB, roomID uint) (*models.Room, error) {
	var room models.Room
	err := db.Preload("Creator").First(&room, roomID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	return &room, nil
}

// Donate applies a donation to a room. The room-balance mutation and the
// ledger insert run in one transaction under a row lock, so two donations
// racing on the same room serialize instead of losing an update.
//
// The applied amount is clamped at the remaining balance; the excess is
// silently discarded. A donation that reaches the goal flips IsActive off.
// A donation against an already-met goal fails with "goal met".
func Donate(db *gorm.DB, roomID uint, in DonationInput) (*models.Room, error) {
	if in.UserID == 0 || in.Amount == 0 {
		return nil, fmt.Errorf("missing field")
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("invalid amount")
	}

	var room models.Room
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, roomID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}

		if room.ToCollect == 0 {
			return fmt.Errorf("goal met")
		}

		applied := in.Amount
		if applied >= room.ToCollect {
			applied = room.ToCollect
			room.ToCollect = 0
			room.IsActive = false
		} else {
			room.ToCollect -= applied
		}

		date := time.Now()
		if in.Date != nil {
			date = *in.Date
		}
		comment := in.Comment
		if comment == "" {
			// Display quirk kept from the original: an empty comment
			// shows the raw requested amount, not the applied one.
			comment = types.FormatAmount(in.Amount)
		}

		donation := models.Donation{
			UserID:  in.UserID,
			RoomID:  room.ID,
			Date:    datatypes.Date(date),
			Amount:  applied,
			Comment: comment,
		}
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}

		return tx.Model(&room).
			Select("to_collect", "is_active").
			Updates(map[string]interface{}{
				"to_collect": room.ToCollect,
				"is_active":  room.IsActive,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetPatrons sums donation amounts per user for the room, descending by total.
func GetPatrons(db *gorm.DB, roomID uint) ([]PatronTotal, error) {
	if err := requireRoom(db, roomID); err != nil {
		return nil, err
	}
	var patrons []PatronTotal
	err := db.Model(&models.Donation{}).
		Select("users.username AS username, SUM(donations.amount) AS total").
		Joins("JOIN users ON users.id = donations.user_id").
		Where("donations.room_id = ?", roomID).
		Group("users.id, users.username").
		Order("total DESC").
		Scan(&patrons).Error
	return patrons, err
}

// GetChartData aggregates donation sums per date for the room.
func GetChartData(db *gorm.DB, roomID uint) (*ChartData, error) {
	if err := requireRoom(db, roomID); err != nil {
		return nil, err
	}
	var rows []struct {
		Date  datatypes.Date
		Total int64
	}
	err := db.Model(&models.Donation{}).
		Select("donations.date AS date, SUM(donations.amount) AS total").
		Where("donations.room_id = ?", roomID).
		Group("donations.date").
		Order("donations.date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	chart := &ChartData{Categories: []string{}, Data: []int64{}}
	for _, row := range rows {
		chart.Categories = append(chart.Categories, time.Time(row.Date).Format("2006-01-02"))
		// Chart values are whole currency units.
		chart.Data = append(chart.Data, row.Total/100)
	}
	return chart, nil
}

// visibleQuery returns the base query for rooms the user may see: globally
// visible rooms, rooms they created and rooms they are a guest of,
// de-duplicated.
func visibleQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Room{}).
		Distinct("rooms.*").
		Joins("LEFT JOIN room_guests ON room_guests.room_id = rooms.id").
		Where("rooms.visible = ? OR rooms.creator_id = ? OR room_guests.user_id = ?",
			true, userID, userID)
}

// GetVisible lists rooms visible to the user, newest expiry first.
func GetVisible(db *gorm.DB, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := visibleQuery(db, userID).
		Order("rooms.date_expires DESC").
		Find(&rooms).Error
	return rooms, err
}

// SearchRooms filters the user-visible set with a case-insensitive
// substring match over receiver, gift and description.
func SearchRooms(db *gorm.DB, userID uint, field string) ([]models.Room, error) {
	pattern := "%" + field + "%"
	var rooms []models.Room
	err := visibleQuery(db, userID).
		Where(db.Where("LOWER(rooms.receiver) LIKE LOWER(?)", pattern).
			Or("LOWER(rooms.gift) LIKE LOWER(?)", pattern).
			Or("LOWER(rooms.description) LIKE LOWER(?)", pattern)).
		Order("rooms.date_expires DESC").
		Find(&rooms).Error
	return rooms, err
}

// MostPopular orders the user-visible rooms by amount collected, descending.
func MostPopular(db *gorm.DB, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := visibleQuery(db, userID).
		Clauses(hints.New("MAX_EXECUTION_TIME(10000)")).
		Order("(rooms.price - rooms.to_collect) DESC").
		Find(&rooms).Error
	return rooms, err
}

// MostPatrons orders the user-visible rooms by distinct donor count,
// descending. Rooms without donors are excluded.
func MostPatrons(db *gorm.DB, userID uint) ([]RoomRank, error) {
	var ranks []RoomRank
	err := db.Model(&models.Room{}).
		Select("rooms.*, COUNT(DISTINCT donations.user_id) AS patrons_number").
		Joins("JOIN donations ON donations.room_id = rooms.id").
		Joins("LEFT JOIN room_guests ON room_guests.room_id = rooms.id").
		Where("rooms.visible = ? OR rooms.creator_id = ? OR room_guests.user_id = ?",
			true, userID, userID).
		Group("rooms.id").
		Order("patrons_number DESC").
		Find(&ranks).Error
	return ranks, err
}

// MostToCollect orders the user-visible rooms by remaining balance, descending.
func MostToCollect(db *gorm.DB, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := visibleQuery(db, userID).
		Order("rooms.to_collect DESC").
		Find(&rooms).Error
	return rooms, err
}

// CanSee reports whether the user may see the room: it is globally
// visible, or the user created it, or the user is a guest.
func CanSee(db *gorm.DB, room *models.Room, userID uint) (bool, error) {
	if room.Visible {
		return true, nil
	}
	if room.CreatorID != nil && *room.CreatorID == userID {
		return true, nil
	}
	var count int64
	err := db.Table("room_guests").
		Where("room_id = ? AND user_id = ?", room.ID, userID).
		Count(&count).Error
	return count > 0, err
}

// UpdateScore recomputes and stores the room score as a pure function of
// current counts: 2*patrons + observers + collected/1000 currency units.
// It is only ever invoked explicitly; nothing recomputes it on mutation.
func UpdateScore(db *gorm.DB, roomID uint) (float64, error) {
	room, err := GetRoom(db, roomID)
	if err != nil {
		return 0, err
	}

	var patrons int64
	if err := db.Model(&models.Donation{}).
		Where("room_id = ?", roomID).
		Distinct("user_id").
		Count(&patrons).Error; err != nil {
		return 0, err
	}

	var observers int64
	if err := db.Table("room_observers").
		Where("room_id = ?", roomID).
		Count(&observers).Error; err != nil {
		return 0, err
	}

	collectedUnits := float64(room.Collected()) / 100
	score := float64(patrons)*2 + float64(observers) + collectedUnits/1000

	if err := db.Model(room).Update("score", score).Error; err != nil {
		return 0, err
	}
	return score, nil
}

// AddObserver registers a user as a room observer.
func AddObserver(db *gorm.DB, roomID, userID uint) error {
	room, err := GetRoom(db, roomID)
	if err != nil {
		return err
	}
	user, err := requireUser(db, userID)
	if err != nil {
		return err
	}
	return db.Model(room).Association("Observers").Append(user)
}

// AddGuests grants room visibility to the named users.
func AddGuests(db *gorm.DB, roomID uint, usernames []string) error {
	room, err := GetRoom(db, roomID)
	if err != nil {
		return err
	}
	for _, name := range usernames {
		var user models.User
		if err := db.Where("username = ?", name).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("not found")
			}
			return err
		}
		if err := db.Model(room).Association("Guests").Append(&user); err != nil {
			return err
		}
	}
	return nil
}

// RemoveGuest revokes a guest by username and returns the remaining guest
// list. An unknown username fails with "not found".
func RemoveGuest(db *gorm.DB, roomID uint, username string) ([]string, error) {
	room, err := GetRoom(db, roomID)
	if err != nil {
		return nil, err
	}

	var guests []models.User
	if err := db.Model(room).Where("username = ?", username).
		Association("Guests").Find(&guests); err != nil {
		return nil, err
	}
	if len(guests) != 1 {
		return nil, fmt.Errorf("not found")
	}
	if err := db.Model(room).Association("Guests").Delete(&guests[0]); err != nil {
		return nil, err
	}

	return GetGuestNames(db, roomID)
}

// GetGuestNames lists the room's guest usernames.
func GetGuestNames(db *gorm.DB, roomID uint) ([]string, error) {
	if err := requireRoom(db, roomID); err != nil {
		return nil, err
	}
	names := []string{}
	err := db.Table("room_guests").
		Select("users.username").
		Joins("JOIN users ON users.id = room_guests.user_id").
		Where("room_guests.room_id = ?", roomID).
		Order("room_guests.user_id").
		Scan(&names).Error
	return names, err
}

// requireRoom fails with "not found" when the room does not exist.
func requireRoom(db *gorm.DB, roomID uint) error {
	var count int64
	if err := db.Model(&models.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}

// requireUser fails with "not found" when the user does not exist.
func requireUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	return &user, nil
}
