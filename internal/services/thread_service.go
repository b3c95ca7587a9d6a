package services

import (
	"fmt"
	"strconv"

	"github.com/localnerve/giftroom/internal/models"
	"gorm.io/gorm"
)

// threadDateFormat is the display format the original UI expects.
const threadDateFormat = "02.01.06 15:04"

// ThreadInput carries the fields for thread creation.
type ThreadInput struct {
	AuthorID uint
	Subject  string
	Content  string
	ParentID *uint
}

// ThreadSummary is the flattened view of a single thread. ChildrenCount
// lets a client decide whether to fetch deeper; descendants themselves are
// not included.
type ThreadSummary struct {
	ID            uint   `json:"id"`
	PostID        uint   `json:"post"`
	Author        string `json:"author"`
	Subject       string `json:"subject"`
	Content       string `json:"content"`
	Date          string `json:"date"`
	ChildrenCount int64  `json:"children_count"`
	ThreadParent  *uint  `json:"thread_parent"`
}

// TreeNode is one node of the fully expanded thread tree.
type TreeNode struct {
	ID       uint       `json:"id"`
	Author   string     `json:"author"`
	Subject  string     `json:"subject"`
	Content  string     `json:"content"`
	Date     string     `json:"date"`
	Children []TreeNode `json:"children"`
}

// CreateThread adds a reply under a post. A parent thread, when given,
// must exist and belong to the same post; the check keeps the tree acyclic
// and rooted where it claims to be.
func CreateThread(db *gorm.DB, postID uint, in ThreadInput) (*models.Thread, error) {
	if in.AuthorID == 0 || in.Subject == "" || in.Content == "" {
		return nil, fmt.Errorf("missing field")
	}
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}
	if _, err := requireUser(db, in.AuthorID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		var parent models.Thread
		if err := db.First(&parent, *in.ParentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("invalid parent")
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("invalid parent")
		}
	}

	thread := models.Thread{
		AuthorID: in.AuthorID,
		PostID:   postID,
		ParentID: in.ParentID,
		Subject:  in.Subject,
		Content:  in.Content,
	}
	if err := db.Create(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetMain returns the root-level threads of a post, summarized, keyed by
// position ("0", "1", ...).
func GetMain(db *gorm.DB, postID uint) (map[string]ThreadSummary, error) {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	var threads []models.Thread
	err := db.Preload("Author").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("id").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return summarizeThreads(db, threads)
}

// GetSecondary returns the direct children of a thread, summarized, keyed
// by position. A childless or unknown thread yields an empty map; callers
// page the tree lazily with this.
func GetSecondary(db *gorm.DB, threadID uint) (map[string]ThreadSummary, error) {
	var threads []models.Thread
	err := db.Preload("Author").
		Where("parent_id = ?", threadID).
		Order("id").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return summarizeThreads(db, threads)
}

// summarizeThreads flattens threads to summaries with one grouped query
// for the child counts instead of a count per row.
func summarizeThreads(db *gorm.DB, threads []models.Thread) (map[string]ThreadSummary, error) {
	childCounts, err := childCountsFor(db, threads)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]ThreadSummary, len(threads))
	for num, thread := range threads {
		summaries[strconv.Itoa(num)] = ThreadSummary{
			ID:            thread.ID,
			PostID:        thread.PostID,
			Author:        thread.Author.Username,
			Subject:       thread.Subject,
			Content:       thread.Content,
			Date:          thread.Date.Format(threadDateFormat),
			ChildrenCount: childCounts[thread.ID],
			ThreadParent:  thread.ParentID,
		}
	}
	return summaries, nil
}

// childCountsFor groups direct-child counts by parent for the given threads.
func childCountsFor(db *gorm.DB, threads []models.Thread) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(threads))
	if len(threads) == 0 {
		return counts, nil
	}

	ids := make([]uint, len(threads))
	for i, thread := range threads {
		ids[i] = thread.ID
	}

	var rows []struct {
		ParentID uint
		Count    int64
	}
	err := db.Model(&models.Thread{}).
		Select("parent_id, COUNT(*) AS count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Count
	}
	return counts, nil
}

// GetTree expands the whole thread forest of a post. The tree is built in
// one pass over an adjacency list loaded with a single query; no recursion
// and no per-node fetches, so arbitrarily deep threads cannot blow the
// stack.
func GetTree(db *gorm.DB, postID uint) ([]TreeNode, error) {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("not found")
		}
		return nil, err
	}

	var threads []models.Thread
	err := db.Preload("Author").
		Where("post_id = ?", postID).
		Order("id").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*TreeNode, len(threads))
	for i := range threads {
		thread := &threads[i]
		nodes[thread.ID] = &TreeNode{
			ID:       thread.ID,
			Author:   thread.Author.Username,
			Subject:  thread.Subject,
			Content:  thread.Content,
			Date:     thread.Date.Format(threadDateFormat),
			Children: []TreeNode{},
		}
	}

	// Attach children to parents bottom-up: iterate in reverse id order so
	// every node's subtree is complete before the node is appended to its
	// parent. Parent ids always precede child ids.
	roots := []TreeNode{}
	for i := len(threads) - 1; i >= 0; i-- {
		thread := &threads[i]
		node := nodes[thread.ID]
		if thread.ParentID == nil {
			continue
		}
		parent, ok := nodes[*thread.ParentID]
		if !ok {
			// Orphaned by a parent from another post; skip rather than fail.
			continue
		}
		parent.Children = append([]TreeNode{*node}, parent.Children...)
	}
	for i := range threads {
		if threads[i].ParentID == nil {
			roots = append(roots, *nodes[threads[i].ID])
		}
	}
	return roots, nil
}
