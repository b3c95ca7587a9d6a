package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/localnerve/giftroom/internal/handlers"
	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/tests/helpers"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Auto-migrate models
	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Donation{},
		&models.Message{},
		&models.Post{},
		&models.Thread{},
		&models.Opinion{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// setupRoomApp wires the room routes the way the server does, without auth.
func setupRoomApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	handler := &handlers.RoomHandler{DB: db}
	app.Get("/api/rooms", handler.ListRooms)
	app.Post("/api/rooms", handler.CreateRoom)
	app.Get("/api/rooms/:id", handler.GetRoom)
	app.Post("/api/rooms/:id/donate", handler.Donate)
	app.Get("/api/rooms/:id/patrons", handler.GetPatrons)
	app.Get("/api/rooms/:id/chart", handler.GetChart)
	app.Post("/api/rooms/:id/score", handler.UpdateScore)
	app.Post("/api/rooms/:id/guests", handler.AddGuests)
	app.Get("/api/rooms/:id/guests", handler.ListGuests)
	app.Delete("/api/rooms/:id/guests/:username", handler.RemoveGuest)
	return app
}

func postJSON(t *testing.T, app *fiber.App, url string, payload interface{}) (map[string]interface{}, int) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	var result map[string]interface{}
	helpers.ParseJSON(t, resp, &result)
	return result, resp.StatusCode
}

// TestDonateLifecycle walks a room from open through goal met: two
// partial donations, then a rejected one.
func TestDonateLifecycle(t *testing.T) {
	db := setupTestDB(t)
	donor := helpers.SeedUser(t, db, "bob")
	room := helpers.SeedRoom(t, db, nil, 1000, true) // 10.00
	app := setupRoomApp(db)

	url := "/api/rooms/1/donate"

	// First half
	result, status := postJSON(t, app, url, map[string]interface{}{
		"user": donor.ID, "amount": "5.00",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["to_collect"] != "5.00" {
		t.Errorf("Expected to_collect 5.00, got %v", result["to_collect"])
	}
	if result["is_active"] != true {
		t.Errorf("Expected room still active, got %v", result["is_active"])
	}

	// Second half reaches the goal
	result, status = postJSON(t, app, url, map[string]interface{}{
		"user": donor.ID, "amount": "5.00",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["to_collect"] != "0.00" {
		t.Errorf("Expected to_collect 0.00, got %v", result["to_collect"])
	}
	if result["is_active"] != false {
		t.Errorf("Expected room inactive after goal, got %v", result["is_active"])
	}

	// Goal already met
	result, status = postJSON(t, app, url, map[string]interface{}{
		"user": donor.ID, "amount": "1.00",
	})
	if status != 409 {
		t.Fatalf("Expected status 409, got %d", status)
	}
	if result["error"] == nil {
		t.Error("Expected error map for donation after goal met")
	}

	// The ledger holds exactly two rows, both applied in full
	var donations []models.Donation
	db.Where("room_id = ?", room.ID).Find(&donations)
	if len(donations) != 2 {
		t.Fatalf("Expected 2 ledger rows, got %d", len(donations))
	}
	for _, d := range donations {
		if d.Amount != 500 {
			t.Errorf("Expected applied amount 500, got %d", d.Amount)
		}
	}
}

// TestDonateClampsOverpayment verifies the excess over the remaining
// balance is discarded, not banked.
func TestDonateClampsOverpayment(t *testing.T) {
	db := setupTestDB(t)
	donor := helpers.SeedUser(t, db, "bob")
	room := helpers.SeedRoom(t, db, nil, 1000, true)
	app := setupRoomApp(db)

	result, status := postJSON(t, app, "/api/rooms/1/donate", map[string]interface{}{
		"user": donor.ID, "amount": "15.00",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["to_collect"] != "0.00" || result["collected"] != "10.00" {
		t.Errorf("Expected clamp to the full price, got to_collect=%v collected=%v",
			result["to_collect"], result["collected"])
	}

	var donation models.Donation
	db.Where("room_id = ?", room.ID).First(&donation)
	if donation.Amount != 1000 {
		t.Errorf("Expected ledger amount 1000, got %d", donation.Amount)
	}
	// The default comment keeps the raw requested amount
	if donation.Comment != "15.00" {
		t.Errorf("Expected comment 15.00, got %s", donation.Comment)
	}
}

// TestDonateMissingFields tests the 400 contract
func TestDonateMissingFields(t *testing.T) {
	db := setupTestDB(t)
	helpers.SeedRoom(t, db, nil, 1000, true)
	app := setupRoomApp(db)

	result, status := postJSON(t, app, "/api/rooms/1/donate", map[string]interface{}{
		"amount": "5.00",
	})
	if status != 400 {
		t.Fatalf("Expected status 400, got %d", status)
	}
	if result["error"] == nil {
		t.Error("Expected error map for missing user")
	}

	_, status = postJSON(t, app, "/api/rooms/1/donate", map[string]interface{}{
		"user": 1,
	})
	if status != 400 {
		t.Fatalf("Expected status 400 for missing amount, got %d", status)
	}
}

// TestDonateUnknownRoom tests the 404 contract
func TestDonateUnknownRoom(t *testing.T) {
	db := setupTestDB(t)
	donor := helpers.SeedUser(t, db, "bob")
	app := setupRoomApp(db)

	_, status := postJSON(t, app, "/api/rooms/99/donate", map[string]interface{}{
		"user": donor.ID, "amount": "5.00",
	})
	if status != 404 {
		t.Fatalf("Expected status 404, got %d", status)
	}
}

// TestCreateRoomValidation tests the POST /api/rooms contract
func TestCreateRoomValidation(t *testing.T) {
	db := setupTestDB(t)
	app := setupRoomApp(db)

	nearExpiry := time.Now().AddDate(0, 0, 30).Format("2006-01-02")
	farExpiry := time.Now().AddDate(1, 0, 0).Format("2006-01-02")

	// Valid room
	result, status := postJSON(t, app, "/api/rooms", map[string]interface{}{
		"receiver":     "Alice",
		"gift":         "Bicycle",
		"price":        "120.50",
		"visible":      true,
		"date_expires": nearExpiry,
	})
	if status != 201 {
		t.Fatalf("Expected status 201, got %d", status)
	}
	if result["to_collect"] != "120.50" {
		t.Errorf("Expected to_collect seeded to price, got %v", result["to_collect"])
	}

	// Missing gift
	_, status = postJSON(t, app, "/api/rooms", map[string]interface{}{
		"receiver":     "Alice",
		"price":        "10.00",
		"date_expires": nearExpiry,
	})
	if status != 400 {
		t.Errorf("Expected status 400 for missing gift, got %d", status)
	}

	// Expiry beyond the window
	_, status = postJSON(t, app, "/api/rooms", map[string]interface{}{
		"receiver":     "Alice",
		"gift":         "Bicycle",
		"price":        "10.00",
		"date_expires": farExpiry,
	})
	if status != 400 {
		t.Errorf("Expected status 400 for expiry window, got %d", status)
	}
}

// TestGetRoomVisibility tests that an invisible room 404s for strangers
// and resolves for its creator.
func TestGetRoomVisibility(t *testing.T) {
	db := setupTestDB(t)
	creator := helpers.SeedUser(t, db, "carol")
	stranger := helpers.SeedUser(t, db, "mallory")
	helpers.SeedRoom(t, db, creator, 1000, false)
	app := setupRoomApp(db)

	req := httptest.NewRequest("GET", "/api/rooms/1?user=2", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 404 {
		t.Errorf("Expected 404 for stranger %d, got %d", stranger.ID, resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/rooms/1?user=1", nil)
	resp, _ = app.Test(req)
	helpers.AssertStatus(t, resp, 200)
}

// TestGuestFlow adds guests, lists them and removes one.
func TestGuestFlow(t *testing.T) {
	db := setupTestDB(t)
	creator := helpers.SeedUser(t, db, "carol")
	helpers.SeedUser(t, db, "dave")
	helpers.SeedUser(t, db, "erin")
	helpers.SeedRoom(t, db, creator, 1000, false)
	app := setupRoomApp(db)

	// Single username, not a list, still parses
	body, _ := json.Marshal(map[string]interface{}{"usernames": "dave"})
	req := httptest.NewRequest("POST", "/api/rooms/1/guests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200 adding single guest, got %d", resp.StatusCode)
	}

	body, _ = json.Marshal(map[string]interface{}{"usernames": []string{"erin"}})
	req = httptest.NewRequest("POST", "/api/rooms/1/guests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200 adding guest list, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/rooms/1/guests", nil)
	resp, _ = app.Test(req)
	var names []string
	helpers.ParseJSON(t, resp, &names)
	if len(names) != 2 {
		t.Fatalf("Expected 2 guests, got %v", names)
	}

	req = httptest.NewRequest("DELETE", "/api/rooms/1/guests/dave", nil)
	resp, _ = app.Test(req)
	helpers.AssertStatus(t, resp, 200)
	helpers.ParseJSON(t, resp, &names)
	if len(names) != 1 || names[0] != "erin" {
		t.Errorf("Expected remaining guest erin, got %v", names)
	}

	// Unknown guest
	req = httptest.NewRequest("DELETE", "/api/rooms/1/guests/nobody", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 404 {
		t.Errorf("Expected 404 removing unknown guest, got %d", resp.StatusCode)
	}
}

// TestPatronsAndChart tests the aggregate endpoints.
func TestPatronsAndChart(t *testing.T) {
	db := setupTestDB(t)
	bob := helpers.SeedUser(t, db, "bob")
	eve := helpers.SeedUser(t, db, "eve")
	room := helpers.SeedRoom(t, db, nil, 10000, true)
	helpers.SeedDonation(t, db, room, bob, 1000)
	helpers.SeedDonation(t, db, room, bob, 500)
	helpers.SeedDonation(t, db, room, eve, 2000)
	app := setupRoomApp(db)

	req := httptest.NewRequest("GET", "/api/rooms/1/patrons", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var patrons []map[string]interface{}
	helpers.ParseJSON(t, resp, &patrons)
	if len(patrons) != 2 {
		t.Fatalf("Expected 2 patrons, got %d", len(patrons))
	}
	// Largest total first
	if patrons[0]["username"] != "eve" || patrons[0]["total"].(float64) != 2000 {
		t.Errorf("Expected eve with 2000 first, got %v", patrons[0])
	}
	if patrons[1]["username"] != "bob" || patrons[1]["total"].(float64) != 1500 {
		t.Errorf("Expected bob with 1500 second, got %v", patrons[1])
	}

	req = httptest.NewRequest("GET", "/api/rooms/1/chart", nil)
	resp, _ = app.Test(req)
	var chart map[string]interface{}
	helpers.ParseJSON(t, resp, &chart)
	data := chart["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("Expected one chart bucket, got %d", len(data))
	}
	// 3500 cents on one date, charted in whole units
	if data[0].(float64) != 35 {
		t.Errorf("Expected 35 units, got %v", data[0])
	}
}

// TestUpdateScoreEndpoint tests explicit score recompute.
func TestUpdateScoreEndpoint(t *testing.T) {
	db := setupTestDB(t)
	bob := helpers.SeedUser(t, db, "bob")
	eve := helpers.SeedUser(t, db, "eve")
	room := helpers.SeedRoom(t, db, nil, 100000, true)
	helpers.SeedDonation(t, db, room, bob, 50000)
	helpers.SeedDonation(t, db, room, eve, 25000)
	db.Model(room).Update("to_collect", 25000)
	app := setupRoomApp(db)

	result, status := postJSON(t, app, "/api/rooms/1/score", nil)
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}
	// 2 patrons * 2 + 0 observers + 750 units / 1000
	if result["score"].(float64) != 4.75 {
		t.Errorf("Expected score 4.75, got %v", result["score"])
	}

	var stored models.Room
	db.First(&stored, room.ID)
	if stored.Score != 4.75 {
		t.Errorf("Expected stored score 4.75, got %v", stored.Score)
	}
}
