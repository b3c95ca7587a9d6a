package integration_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/giftroom/internal/config"
	"github.com/localnerve/giftroom/internal/database"
	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/internal/services"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestWithMariaDB tests the service with a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 10,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Run tests
	t.Run("DonateLifecycle", func(t *testing.T) {
		testDonateLifecycle(t, db)
	})

	t.Run("ConcurrentDonations", func(t *testing.T) {
		testConcurrentDonations(t, db)
	})

	t.Run("ForumTree", func(t *testing.T) {
		testForumTree(t, db)
	})
}

// TestWithPostgreSQL tests the service with a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("POSTGRES_IMAGE"),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "testuser",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 10,
	}

	// Wait for database to be ready
	time.Sleep(2 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Run("DonateLifecycle", func(t *testing.T) {
		testDonateLifecycle(t, db)
	})

	t.Run("ConcurrentDonations", func(t *testing.T) {
		testConcurrentDonations(t, db)
	})

	t.Run("ForumTree", func(t *testing.T) {
		testForumTree(t, db)
	})
}

func seedIntegrationUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return &user
}

func seedIntegrationRoom(t *testing.T, db *gorm.DB, price int64) *models.Room {
	t.Helper()
	today := time.Now().Truncate(24 * time.Hour)
	room := models.Room{
		Receiver:    "Alice",
		Gift:        "Bicycle",
		Price:       price,
		ToCollect:   price,
		Visible:     true,
		IsActive:    true,
		Created:     datatypes.Date(today),
		DateExpires: datatypes.Date(today.AddDate(0, 0, 30)),
	}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}
	return &room
}

// testDonateLifecycle walks the clamp and goal-met rules against a real
// database.
func testDonateLifecycle(t *testing.T, db *gorm.DB) {
	donor := seedIntegrationUser(t, db, "lifecycle_donor")
	room := seedIntegrationRoom(t, db, 1000)

	updated, err := services.Donate(db, room.ID, services.DonationInput{
		UserID: donor.ID, Amount: 400,
	})
	if err != nil {
		t.Fatalf("First donation failed: %v", err)
	}
	if updated.ToCollect != 600 || !updated.IsActive {
		t.Errorf("Expected 600 remaining and active, got %d/%v", updated.ToCollect, updated.IsActive)
	}

	// Overshoot clamps to the remaining balance
	updated, err = services.Donate(db, room.ID, services.DonationInput{
		UserID: donor.ID, Amount: 900,
	})
	if err != nil {
		t.Fatalf("Second donation failed: %v", err)
	}
	if updated.ToCollect != 0 || updated.IsActive {
		t.Errorf("Expected goal met and inactive, got %d/%v", updated.ToCollect, updated.IsActive)
	}

	_, err = services.Donate(db, room.ID, services.DonationInput{
		UserID: donor.ID, Amount: 100,
	})
	if err == nil || err.Error() != "goal met" {
		t.Errorf("Expected goal met error, got %v", err)
	}

	var total int64
	db.Model(&models.Donation{}).Where("room_id = ?", room.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&total)
	if total != 1000 {
		t.Errorf("Expected applied ledger total 1000, got %d", total)
	}
}

// testConcurrentDonations fires donations in parallel at one room. The
// row lock must serialize them: no lost updates, the applied ledger total
// equals the collected amount exactly.
func testConcurrentDonations(t *testing.T, db *gorm.DB) {
	const workers = 10
	const perDonation = 100

	donor := seedIntegrationUser(t, db, "concurrent_donor")
	room := seedIntegrationRoom(t, db, workers*perDonation*2)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := services.Donate(db, room.ID, services.DonationInput{
				UserID: donor.ID, Amount: perDonation,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent donation failed: %v", err)
		}
	}

	var fresh models.Room
	if err := db.First(&fresh, room.ID).Error; err != nil {
		t.Fatalf("Failed to reload room: %v", err)
	}
	expected := fresh.Price - workers*perDonation
	if fresh.ToCollect != expected {
		t.Errorf("Lost update: expected to_collect %d, got %d", expected, fresh.ToCollect)
	}

	var total int64
	db.Model(&models.Donation{}).Where("room_id = ?", room.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&total)
	if total != fresh.Collected() {
		t.Errorf("Ledger total %d does not match collected %d", total, fresh.Collected())
	}
}

// testForumTree builds a nested thread tree and expands it.
func testForumTree(t *testing.T, db *gorm.DB) {
	author := seedIntegrationUser(t, db, "tree_author")
	room := seedIntegrationRoom(t, db, 1000)

	post, err := services.CreatePost(db, room.ID, services.PostInput{
		AuthorID: author.ID, Subject: "topic", Content: "body",
	})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	root, err := services.CreateThread(db, post.ID, services.ThreadInput{
		AuthorID: author.ID, Subject: "root", Content: "body",
	})
	if err != nil {
		t.Fatalf("Failed to create root thread: %v", err)
	}
	child, err := services.CreateThread(db, post.ID, services.ThreadInput{
		AuthorID: author.ID, Subject: "child", Content: "body", ParentID: &root.ID,
	})
	if err != nil {
		t.Fatalf("Failed to create child thread: %v", err)
	}
	if _, err := services.CreateThread(db, post.ID, services.ThreadInput{
		AuthorID: author.ID, Subject: "grandchild", Content: "body", ParentID: &child.ID,
	}); err != nil {
		t.Fatalf("Failed to create grandchild thread: %v", err)
	}

	tree, err := services.GetTree(db, post.ID)
	if err != nil {
		t.Fatalf("Failed to expand tree: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("Expected 1 root, got %d", len(tree))
	}
	if len(tree[0].Children) != 1 || len(tree[0].Children[0].Children) != 1 {
		t.Errorf("Expected chain of depth 3, got %+v", tree)
	}
	if tree[0].Children[0].Children[0].Subject != "grandchild" {
		t.Errorf("Expected grandchild leaf, got %+v", tree[0].Children[0].Children[0])
	}
}
