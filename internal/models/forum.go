package models

import (
	"time"
)

// Opinion vote values. The ledger stores one row per vote cast; there is
// deliberately no uniqueness constraint on (user, target), so repeated
// votes accumulate.
const (
	OpinionLike    = 1
	OpinionDislike = -1
)

// Post is a top-level forum entry attached to a room.
type Post struct {
	ID       uint `gorm:"primaryKey;autoIncrement"`
	RoomID   uint `gorm:"index;not null"`
	Room     Room `gorm:"foreignKey:RoomID"`
	AuthorID uint `gorm:"index;not null"`
	Author   User `gorm:"foreignKey:AuthorID"`
	Subject  string    `gorm:"size:100;not null"`
	Content  string    `gorm:"size:500;not null"`
	Date     time.Time `gorm:"autoCreateTime"`

	Threads  []Thread  `gorm:"foreignKey:PostID"`
	Opinions []Opinion `gorm:"foreignKey:PostID"`
}

// Thread is a reply under a post. ParentID is nil for a root-level reply;
// otherwise it points at another thread of the same post, forming an
// acyclic tree.
type Thread struct {
	ID       uint  `gorm:"primaryKey;autoIncrement"`
	AuthorID uint  `gorm:"index;not null"`
	Author   User  `gorm:"foreignKey:AuthorID"`
	PostID   uint  `gorm:"index;not null"`
	ParentID *uint `gorm:"index"`
	Subject  string    `gorm:"size:100;not null"`
	Content  string    `gorm:"size:500;not null"`
	Date     time.Time `gorm:"autoCreateTime"`

	Opinions []Opinion `gorm:"foreignKey:ThreadID"`
}

// Opinion is one like/dislike ledger row. Exactly one of PostID/ThreadID
// is set.
type Opinion struct {
	ID       uint  `gorm:"primaryKey;autoIncrement"`
	UserID   uint  `gorm:"index;not null"`
	PostID   *uint `gorm:"index"`
	ThreadID *uint `gorm:"index"`
	Likes    int   `gorm:"not null"`
	Date     time.Time `gorm:"autoCreateTime"`
}

// HasParent reports whether the thread is a nested reply.
func (t *Thread) HasParent() bool {
	return t.ParentID != nil
}

// TableName overrides the table name for Post
func (Post) TableName() string {
	return "posts"
}

// TableName overrides the table name for Thread
func (Thread) TableName() string {
	return "threads"
}

// TableName overrides the table name for Opinion
func (Opinion) TableName() string {
	return "opinions"
}
