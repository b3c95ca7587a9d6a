package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/internal/services"
	"github.com/localnerve/giftroom/internal/types"
	"github.com/localnerve/giftroom/internal/utils"
	"gorm.io/gorm"
)

// ThreadHandler handles thread routes
type ThreadHandler struct {
	DB *gorm.DB
}

// threadBody is the thread create request contract. Parent is optional;
// zero means a root thread.
type threadBody struct {
	Author  types.FlexUint64 `json:"author"`
	Subject string           `json:"subject"`
	Content string           `json:"content"`
	Parent  types.FlexUint64 `json:"parent"`
}

// fetchBody selects either a post's roots or a thread's children.
type fetchBody struct {
	PostID   types.FlexUint64 `json:"post_id"`
	ThreadID types.FlexUint64 `json:"thread_id"`
}

// CreateThread handles POST /api/forum/posts/:id/threads
// @Summary Create a thread
// @Description Reply under a post, optionally nested under a parent thread
// @Tags Threads
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param thread body handlers.threadBody true "Thread fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/posts/{id}/threads [post]
func (h *ThreadHandler) CreateThread(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Post not found")
	}
	var body threadBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	in := services.ThreadInput{
		AuthorID: body.Author.Uint(),
		Subject:  body.Subject,
		Content:  body.Content,
	}
	if parent := body.Parent.Uint(); parent != 0 {
		in.ParentID = &parent
	}
	thread, err := services.CreateThread(h.DB, postID, in)
	if err != nil {
		return serviceError(c, err, "createThread")
	}
	return c.Status(fiber.StatusCreated).JSON(threadView(thread))
}

// FetchThreads handles POST /api/forum/threads/fetch
// @Summary Fetch one thread level
// @Description With post_id return a post's root threads; with thread_id return a thread's direct children
// @Tags Threads
// @Accept json
// @Produce json
// @Param selector body handlers.fetchBody true "post_id or thread_id"
// @Success 200 {object} map[string]services.ThreadSummary
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/threads/fetch [post]
func (h *ThreadHandler) FetchThreads(c *fiber.Ctx) error {
	var body fetchBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}

	if id := body.ThreadID.Uint(); id != 0 {
		summaries, err := services.GetSecondary(h.DB, id)
		if err != nil {
			return serviceError(c, err, "fetchThreads")
		}
		return c.Status(fiber.StatusOK).JSON(summaries)
	}
	if id := body.PostID.Uint(); id != 0 {
		summaries, err := services.GetMain(h.DB, id)
		if err != nil {
			return serviceError(c, err, "fetchThreads")
		}
		return c.Status(fiber.StatusOK).JSON(summaries)
	}
	return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Need post_id or thread_id")
}

// ThreadTree handles GET /api/forum/posts/:id/tree
// @Summary Get the full thread tree
// @Description The post's complete reply tree, nested
// @Tags Threads
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} services.TreeNode
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/posts/{id}/tree [get]
func (h *ThreadHandler) ThreadTree(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Post not found")
	}
	tree, err := services.GetTree(h.DB, postID)
	if err != nil {
		return serviceError(c, err, "threadTree")
	}
	return c.Status(fiber.StatusOK).JSON(tree)
}

// threadView flattens a thread to its API shape.
func threadView(thread *models.Thread) fiber.Map {
	return fiber.Map{
		"id":      thread.ID,
		"post":    thread.PostID,
		"author":  thread.AuthorID,
		"subject": thread.Subject,
		"content": thread.Content,
		"parent":  thread.ParentID,
	}
}
