package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ErrorMapResponse sends the compact {error} map used by the donation
// and guest endpoints.
func ErrorMapResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// UnauthorizedResponse sends a 401 for author-only mutations
func UnauthorizedResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":    fiber.StatusUnauthorized,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// VoteResponse sends the vote endpoint contract: {success, num_likes}
func VoteResponse(c *fiber.Ctx, numLikes int64) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"num_likes": numLikes,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// ErrorMapStruct defines the schema for compact error maps
type ErrorMapStruct struct {
	Error string `json:"error"`
}

// VoteResponseStruct defines the schema for vote responses
type VoteResponseStruct struct {
	Success  bool  `json:"success"`
	NumLikes int64 `json:"num_likes"`
}
