package handlers_test

import (
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/tests/helpers"
)

// TestCreateThreadParentRules tests the parent edge check on creation.
func TestCreateThreadParentRules(t *testing.T) {
	db := setupTestDB(t)
	author := helpers.SeedUser(t, db, "carol")
	room := helpers.SeedRoom(t, db, nil, 1000, true)
	first := helpers.SeedPost(t, db, room, author, "first")
	second := helpers.SeedPost(t, db, room, author, "second")
	root := helpers.SeedThread(t, db, first, author, nil, "root")
	app := setupForumApp(db)

	// Nested reply under the same post
	result, status := postJSON(t, app, "/api/forum/posts/1/threads", map[string]interface{}{
		"author": author.ID, "subject": "child", "content": "nested", "parent": root.ID,
	})
	if status != 201 {
		t.Fatalf("Expected 201, got %d", status)
	}
	if uint(result["parent"].(float64)) != root.ID {
		t.Errorf("Expected parent %d, got %v", root.ID, result["parent"])
	}

	// Parent from a different post is rejected
	_, status = postJSON(t, app, "/api/forum/posts/2/threads", map[string]interface{}{
		"author": author.ID, "subject": "bad", "content": "cross-post", "parent": root.ID,
	})
	if status != 400 {
		t.Errorf("Expected 400 for cross-post parent on post %d, got %d", second.ID, status)
	}

	// Nonexistent parent is rejected
	_, status = postJSON(t, app, "/api/forum/posts/1/threads", map[string]interface{}{
		"author": author.ID, "subject": "bad", "content": "ghost", "parent": 99,
	})
	if status != 400 {
		t.Errorf("Expected 400 for unknown parent, got %d", status)
	}
}

// TestFetchThreads pages the tree one level at a time: post_id returns
// roots, thread_id returns direct children only.
func TestFetchThreads(t *testing.T) {
	db := setupTestDB(t)
	author := helpers.SeedUser(t, db, "carol")
	room := helpers.SeedRoom(t, db, nil, 1000, true)
	post := helpers.SeedPost(t, db, room, author, "topic")
	rootA := helpers.SeedThread(t, db, post, author, nil, "root a")
	rootB := helpers.SeedThread(t, db, post, author, nil, "root b")
	childA1 := helpers.SeedThread(t, db, post, author, rootA, "child a1")
	helpers.SeedThread(t, db, post, author, rootA, "child a2")
	helpers.SeedThread(t, db, post, author, childA1, "grandchild")
	app := setupForumApp(db)

	// Roots, keyed by position
	result, status := postJSON(t, app, "/api/forum/threads/fetch", map[string]interface{}{
		"post_id": post.ID,
	})
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(result))
	}
	firstRoot := result["0"].(map[string]interface{})
	if firstRoot["subject"] != "root a" {
		t.Errorf("Expected root a first, got %v", firstRoot["subject"])
	}
	if firstRoot["children_count"].(float64) != 2 {
		t.Errorf("Expected 2 children for root a, got %v", firstRoot["children_count"])
	}
	if firstRoot["thread_parent"] != nil {
		t.Errorf("Expected nil thread_parent for a root, got %v", firstRoot["thread_parent"])
	}

	// Children of root a; every child names root a as its parent
	result, _ = postJSON(t, app, "/api/forum/threads/fetch", map[string]interface{}{
		"thread_id": rootA.ID,
	})
	if len(result) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(result))
	}
	for key, raw := range result {
		child := raw.(map[string]interface{})
		if uint(child["thread_parent"].(float64)) != rootA.ID {
			t.Errorf("Child %s: expected thread_parent %d, got %v", key, rootA.ID, child["thread_parent"])
		}
	}

	// A leaf has no children
	result, _ = postJSON(t, app, "/api/forum/threads/fetch", map[string]interface{}{
		"thread_id": rootB.ID,
	})
	if len(result) != 0 {
		t.Errorf("Expected empty map for leaf, got %v", result)
	}

	// Neither selector
	_, status = postJSON(t, app, "/api/forum/threads/fetch", map[string]interface{}{})
	if status != 400 {
		t.Errorf("Expected 400 without selector, got %d", status)
	}
}

// TestThreadTree checks the fully expanded tree shape.
func TestThreadTree(t *testing.T) {
	db := setupTestDB(t)
	author := helpers.SeedUser(t, db, "carol")
	room := helpers.SeedRoom(t, db, nil, 1000, true)
	post := helpers.SeedPost(t, db, room, author, "topic")
	rootA := helpers.SeedThread(t, db, post, author, nil, "root a")
	helpers.SeedThread(t, db, post, author, nil, "root b")
	child := helpers.SeedThread(t, db, post, author, rootA, "child")
	helpers.SeedThread(t, db, post, author, child, "grandchild")
	app := setupForumApp(db)

	req := httptest.NewRequest("GET", "/api/forum/posts/1/tree", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var tree []struct {
		ID       uint   `json:"id"`
		Subject  string `json:"subject"`
		Children []struct {
			Subject  string `json:"subject"`
			Children []struct {
				Subject  string        `json:"subject"`
				Children []interface{} `json:"children"`
			} `json:"children"`
		} `json:"children"`
	}
	helpers.ParseJSON(t, resp, &tree)

	if len(tree) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(tree))
	}
	if tree[0].Subject != "root a" || len(tree[0].Children) != 1 {
		t.Fatalf("Expected root a with one child, got %+v", tree[0])
	}
	if tree[0].Children[0].Subject != "child" || len(tree[0].Children[0].Children) != 1 {
		t.Fatalf("Expected nested child with grandchild, got %+v", tree[0].Children[0])
	}
	if tree[0].Children[0].Children[0].Subject != "grandchild" {
		t.Errorf("Expected grandchild at depth 3, got %+v", tree[0].Children[0].Children[0])
	}
	if len(tree[1].Children) != 0 {
		t.Errorf("Expected root b childless, got %+v", tree[1])
	}

	// Empty forest for a post without threads
	var empty models.Post
	db.Create(&models.Post{RoomID: room.ID, AuthorID: author.ID, Subject: "bare", Content: "no replies"})
	db.Where("subject = ?", "bare").First(&empty)
	req = httptest.NewRequest("GET", "/api/forum/posts/"+strconv.FormatUint(uint64(empty.ID), 10)+"/tree", nil)
	resp, _ = app.Test(req)
	var roots []interface{}
	helpers.ParseJSON(t, resp, &roots)
	if len(roots) != 0 {
		t.Errorf("Expected empty tree, got %v", roots)
	}
}
