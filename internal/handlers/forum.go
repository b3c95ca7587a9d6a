// forum.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/internal/services"
	"github.com/localnerve/giftroom/internal/types"
	"github.com/localnerve/giftroom/internal/utils"
	"gorm.io/gorm"
)

// ForumHandler handles post and vote routes
type ForumHandler struct {
	DB *gorm.DB
}

// postBody is the post create/update request contract.
type postBody struct {
	Author  types.FlexUint64 `json:"author"`
	Subject string           `json:"subject"`
	Content string           `json:"content"`
}

// voteBody targets a post or a thread by id.
type voteBody struct {
	ID       types.FlexUint64 `json:"id"`
	IsThread bool             `json:"is_thread"`
	User     types.FlexUint64 `json:"user"`
}

// ListPosts handles GET /api/forum/posts?search=...
// @Summary List ranked posts
// @Description List posts of visible rooms ordered by combined likes, optionally searched
// @Tags Forum
// @Accept json
// @Produce json
// @Param search query string false "Substring over gift, author, subject, content, threads"
// @Success 200 {array} services.PostRank
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/posts [get]
func (h *ForumHandler) ListPosts(c *fiber.Ctx) error {
	ranks, err := services.GetPostsWithLikes(h.DB, c.Query("search"))
	if err != nil {
		return serviceError(c, err, "listPosts")
	}
	return c.Status(fiber.StatusOK).JSON(ranks)
}

// RoomPosts handles GET /api/rooms/:id/posts
// @Summary List a room's posts
// @Description Posts of one room with like annotations and room totals
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/posts [get]
func (h *ForumHandler) RoomPosts(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	ranks, err := services.GetRoomPosts(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "roomPosts")
	}
	allLikes, err := services.RoomAllLikes(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "roomPosts")
	}
	allComments, err := services.RoomAllComments(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "roomPosts")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts":        ranks,
		"all_likes":    allLikes,
		"all_comments": allComments,
	})
}

// CreatePost handles POST /api/rooms/:id/posts
// @Summary Create a post
// @Description Open a new discussion under a room
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param post body handlers.postBody true "Post fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/posts [post]
func (h *ForumHandler) CreatePost(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	var body postBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	post, err := services.CreatePost(h.DB, roomID, services.PostInput{
		AuthorID: body.Author.Uint(),
		Subject:  body.Subject,
		Content:  body.Content,
	})
	if err != nil {
		return serviceError(c, err, "createPost")
	}
	return c.Status(fiber.StatusCreated).JSON(postView(post))
}

// UpdatePost handles PUT /api/forum/posts/:id
// @Summary Update a post
// @Description Rewrite subject and content; only the author may update
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param post body handlers.postBody true "Post fields"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/posts/{id} [put]
func (h *ForumHandler) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Post not found")
	}
	var body postBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	post, err := services.UpdatePost(h.DB, postID, body.Author.Uint(), body.Subject, body.Content)
	if err != nil {
		return serviceError(c, err, "updatePost")
	}
	return c.Status(fiber.StatusOK).JSON(postView(post))
}

// DeletePost handles DELETE /api/forum/posts/:id?user=...
// @Summary Delete a post
// @Description Delete a post with its threads and votes; only the author may delete
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param user query int true "Calling user ID"
// @Success 204
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/posts/{id} [delete]
func (h *ForumHandler) DeletePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Post not found")
	}
	if err := services.DeletePost(h.DB, postID, callerID(c)); err != nil {
		return serviceError(c, err, "deletePost")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddLike handles POST /api/forum/likes
// @Summary Like a post or thread
// @Description Append a +1 vote and return the target's new vote sum
// @Tags Forum
// @Accept json
// @Produce json
// @Param vote body handlers.voteBody true "Vote target"
// @Success 200 {object} utils.VoteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/likes [post]
func (h *ForumHandler) AddLike(c *fiber.Ctx) error {
	return h.vote(c, models.OpinionLike)
}

// AddDislike handles POST /api/forum/dislikes
// @Summary Dislike a post or thread
// @Description Append a -1 vote and return the target's new vote sum
// @Tags Forum
// @Accept json
// @Produce json
// @Param vote body handlers.voteBody true "Vote target"
// @Success 200 {object} utils.VoteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /forum/dislikes [post]
func (h *ForumHandler) AddDislike(c *fiber.Ctx) error {
	return h.vote(c, models.OpinionDislike)
}

func (h *ForumHandler) vote(c *fiber.Ctx, likes int) error {
	var body voteBody
	if err := c.BodyParser(&body); err != nil || body.ID == 0 {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Missing vote target")
	}
	numLikes, err := services.AddOpinion(h.DB, body.ID.Uint(), body.IsThread, body.User.Uint(), likes)
	if err != nil {
		return serviceError(c, err, "vote")
	}
	return utils.VoteResponse(c, numLikes)
}

// postView flattens a post to its API shape.
func postView(post *models.Post) fiber.Map {
	return fiber.Map{
		"id":      post.ID,
		"room":    post.RoomID,
		"author":  post.AuthorID,
		"subject": post.Subject,
		"content": post.Content,
	}
}
