// data.go
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

package helpers

import (
	"testing"
	"time"

	"github.com/localnerve/giftroom/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedUser creates a user with the given username.
func SeedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
	return &user
}

// SeedRoom creates an active room. Price is in cents; to_collect starts
// at the full price.
func SeedRoom(t *testing.T, db *gorm.DB, creator *models.User, price int64, visible bool) *models.Room {
	t.Helper()
	today := time.Now().Truncate(24 * time.Hour)
	room := models.Room{
		Receiver:    "Alice",
		Gift:        "Bicycle",
		Description: "A birthday bicycle",
		Price:       price,
		ToCollect:   price,
		Visible:     visible,
		IsActive:    true,
		Created:     datatypes.Date(today),
		DateExpires: datatypes.Date(today.AddDate(0, 0, 30)),
	}
	if creator != nil {
		room.CreatorID = &creator.ID
	}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("Failed to seed room: %v", err)
	}
	return &room
}

// SeedDonation inserts one ledger row directly, bypassing the donate
// transaction. Useful for aggregate queries.
func SeedDonation(t *testing.T, db *gorm.DB, room *models.Room, user *models.User, amount int64) *models.Donation {
	t.Helper()
	donation := models.Donation{
		UserID: user.ID,
		RoomID: room.ID,
		Date:   datatypes.Date(time.Now().Truncate(24 * time.Hour)),
		Amount: amount,
	}
	if err := db.Create(&donation).Error; err != nil {
		t.Fatalf("Failed to seed donation: %v", err)
	}
	return &donation
}

// SeedPost creates a forum post under a room.
func SeedPost(t *testing.T, db *gorm.DB, room *models.Room, author *models.User, subject string) *models.Post {
	t.Helper()
	post := models.Post{
		RoomID:   room.ID,
		AuthorID: author.ID,
		Subject:  subject,
		Content:  "content of " + subject,
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("Failed to seed post: %v", err)
	}
	return &post
}

// SeedThread creates a reply under a post, optionally nested.
func SeedThread(t *testing.T, db *gorm.DB, post *models.Post, author *models.User, parent *models.Thread, subject string) *models.Thread {
	t.Helper()
	thread := models.Thread{
		PostID:   post.ID,
		AuthorID: author.ID,
		Subject:  subject,
		Content:  "content of " + subject,
	}
	if parent != nil {
		thread.ParentID = &parent.ID
	}
	if err := db.Create(&thread).Error; err != nil {
		t.Fatalf("Failed to seed thread: %v", err)
	}
	return &thread
}

// SeedOpinion appends one vote row against a post or a thread.
func SeedOpinion(t *testing.T, db *gorm.DB, user *models.User, post *models.Post, thread *models.Thread, likes int) {
	t.Helper()
	opinion := models.Opinion{UserID: user.ID, Likes: likes}
	if post != nil {
		opinion.PostID = &post.ID
	}
	if thread != nil {
		opinion.ThreadID = &thread.ID
	}
	if err := db.Create(&opinion).Error; err != nil {
		t.Fatalf("Failed to seed opinion: %v", err)
	}
}
