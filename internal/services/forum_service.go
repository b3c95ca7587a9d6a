package services

import (
	"fmt"

	"github.com/localnerve/giftroom/internal/models"
	"gorm.io/gorm"
)

// PostInput carries the fields for post creation and update.
type PostInput struct {
	AuthorID uint
	Subject  string
	Content  string
}

// PostRank is one row of the ranked post listing. AllLikes sums the vote
// ledgers of the post and of every thread under it; Score adds the thread
// count on top. Score is derived on read, never stored.
type PostRank struct {
	ID          uint   `json:"id"`
	RoomID      uint   `json:"room"`
	Author      string `json:"author" gorm:"column:author_name"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	AllLikes    int64  `json:"all_likes"`
	ThreadCount int64  `json:"threads"`
	Score       int64  `json:"score" gorm:"-"`
}

// postLikesSelect annotates posts with their combined vote ledger sum and
// thread count. COALESCE keeps vote-less posts at zero instead of NULL.
const postLikesSelect = "posts.id AS id, posts.room_id AS room_id, " +
	"users.username AS author_name, posts.subject AS subject, posts.content AS content, " +
	"COALESCE((SELECT SUM(o.likes) FROM opinions o WHERE o.post_id = posts.id), 0) + " +
	"COALESCE((SELECT SUM(o.likes) FROM opinions o JOIN threads t ON o.thread_id = t.id WHERE t.post_id = posts.id), 0) AS all_likes, " +
	"(SELECT COUNT(*) FROM threads t WHERE t.post_id = posts.id) AS thread_count"

// GetPostsWithLikes lists posts of globally visible rooms annotated with
// all_likes, descending. An optional search field narrows the set with a
// case-insensitive substring match over room gift, author username,
// subject, content and nested thread subject/content.
func GetPostsWithLikes(db *gorm.DB, field string) ([]PostRank, error) {
	query := db.Model(&models.Post{}).
		Select(postLikesSelect).
		Joins("JOIN users ON users.id = posts.author_id").
		Joins("JOIN rooms ON rooms.id = posts.room_id").
		Where("rooms.visible = ?", true)

	if field != "" {
		pattern := "%" + field + "%"
		query = query.Where(db.
			Where("LOWER(rooms.gift) LIKE LOWER(?)", pattern).
			Or("LOWER(users.username) LIKE LOWER(?)", pattern).
			Or("LOWER(posts.subject) LIKE LOWER(?)", pattern).
			Or("LOWER(posts.content) LIKE LOWER(?)", pattern).
			Or("EXISTS (SELECT 1 FROM threads t WHERE t.post_id = posts.id AND "+
				"(LOWER(t.subject) LIKE LOWER(?) OR LOWER(t.content) LIKE LOWER(?)))",
				pattern, pattern))
	}

	var ranks []PostRank
	if err := query.Order("all_likes DESC").Scan(&ranks).Error; err != nil {
		return nil, err
	}
	for i := range ranks {
		ranks[i].Score = ranks[i].AllLikes + ranks[i].ThreadCount
	}
	return ranks, nil
}

// GetRoomPosts lists the posts of one room with their annotations.
func GetRoomPosts(db *gorm.DB, roomID uint) ([]PostRank, error) {
	if err := requireRoom(db, roomID); err != nil {
		return nil, err
	}
	var ranks []PostRank
	err := db.Model(&models.Post{}).
		Select(postLikesSelect).
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.room_id = ?", roomID).
		Order("all_likes DESC").
		Scan(&ranks).Error
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		ranks[i].Score = ranks[i].AllLikes + ranks[i].ThreadCount
	}
	return ranks, nil
}

// RoomAllLikes sums all_likes across the room's posts.
func RoomAllLikes(db *gorm.DB, roomID uint) (int64, error) {
	ranks, err := GetRoomPosts(db, roomID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rank := range ranks {
		total += rank.AllLikes
	}
	return total, nil
}

// RoomAllComments counts posts plus threads for the room.
func RoomAllComments(db *gorm.DB, roomID uint) (int64, error) {
	if err := requireRoom(db, roomID); err != nil {
		return 0, err
	}
	var posts int64
	if err := db.Model(&models.Post{}).
		Where("room_id = ?", roomID).
		Count(&posts).Error; err != nil {
		return 0, err
	}
	var threads int64
	err := db.Model(&models.Thread{}).
		Joins("JOIN posts ON posts.id = threads.post_id").
		Where("posts.room_id = ?", roomID).
		Count(&threads).Error
	return posts + threads, err
}

// CreatePost attaches a new post to a room.
func CreatePost(db *gorm.DB, roomID uint, in PostInput) (*models.Post, error) {
	if in.AuthorID == 0 || in.Subject == "" || in.Content == "" {
		return nil, fmt.Errorf("missing field")
	}
	if err := requireRoom(db, roomID); err != nil {
		return nil, err
	}
	if _, err := requireUser(db, in.AuthorID); err != nil {
		return nil, err
	}
	post := models.Post{
		RoomID:   roomID,
		AuthorID: in.AuthorID,
		Subject:  in.Subject,
		Content:  in.Content,
	}
	if err := db.Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost rewrites a post's subject and content. Author-only.
func UpdatePost(db *gorm.DB, postID, userID uint, subject, content string) (*models.Post, error) {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, fmt.Errorf("unauthorized")
	}
	if subject != "" {
		post.Subject = subject
	}
	if content != "" {
		post.Content = content
	}
	if err := db.Model(&post).Select("subject", "content").
		Updates(map[string]interface{}{
			"subject": post.Subject,
			"content": post.Content,
		}).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post with its threads and every vote against
// either. Only the author may delete; anyone else gets "unauthorized".
func DeletePost(db *gorm.DB, postID, userID uint) error {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("not found")
		}
		return err
	}
	if post.AuthorID != userID {
		return fmt.Errorf("unauthorized")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"thread_id IN (?)",
			tx.Model(&models.Thread{}).Select("id").Where("post_id = ?", postID),
		).Delete(&models.Opinion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Opinion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Thread{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// AddOpinion appends one vote (+1 like, -1 dislike) against a post or a
// thread and returns the target's new ledger sum. Votes accumulate without
// a per-user cap.
func AddOpinion(db *gorm.DB, targetID uint, isThread bool, userID uint, likes int) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("missing field")
	}
	if _, err := requireUser(db, userID); err != nil {
		return 0, err
	}

	opinion := models.Opinion{UserID: userID, Likes: likes}
	if isThread {
		var thread models.Thread
		if err := db.First(&thread, targetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, fmt.Errorf("not found")
			}
			return 0, err
		}
		opinion.ThreadID = &thread.ID
	} else {
		var post models.Post
		if err := db.First(&post, targetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, fmt.Errorf("not found")
			}
			return 0, err
		}
		opinion.PostID = &post.ID
	}

	if err := db.Create(&opinion).Error; err != nil {
		return 0, err
	}
	return GetLikes(db, targetID, isThread)
}

// GetLikes sums the vote ledger for a post or a thread.
func GetLikes(db *gorm.DB, targetID uint, isThread bool) (int64, error) {
	column := "post_id"
	if isThread {
		column = "thread_id"
	}
	var sum int64
	err := db.Model(&models.Opinion{}).
		Select("COALESCE(SUM(likes), 0)").
		Where(column+" = ?", targetID).
		Scan(&sum).Error
	return sum, err
}
