// room.go
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
	"github.com/localnerve/giftroom/internal/services"
	"github.com/localnerve/giftroom/internal/types"
	"github.com/localnerve/giftroom/internal/utils"
	"gorm.io/gorm"
)

// RoomHandler handles room and donation routes
type RoomHandler struct {
	DB *gorm.DB
}

// donateBody is the donation request contract. User and Amount are
// required; Date and Comment are optional.
type donateBody struct {
	User    types.FlexUint64 `json:"user"`
	Amount  types.FlexAmount `json:"amount"`
	Date    string           `json:"date"`
	Comment string           `json:"comment"`
}

// roomBody is the create/update request contract.
type roomBody struct {
	Receiver    string           `json:"receiver"`
	Creator     types.FlexUint64 `json:"creator"`
	Gift        string           `json:"gift"`
	GiftURL     string           `json:"gift_url"`
	Description string           `json:"description"`
	Price       types.FlexAmount `json:"price"`
	Visible     *bool            `json:"visible"`
	DateExpires string           `json:"date_expires"`
}

// guestBody accepts one username or a list of usernames.
type guestBody struct {
	Usernames types.FlexList[string] `json:"usernames"`
}

// ListRooms handles GET /api/rooms?order=...&search=...&user=...
// @Summary List rooms visible to the calling user
// @Description List the visible-room set, optionally ranked or searched
// @Tags Rooms
// @Accept json
// @Produce json
// @Param user query int true "Calling user ID"
// @Param order query string false "Ranking: popular, patrons or to_collect"
// @Param search query string false "Substring over receiver, gift, description"
// @Success 200 {array} map[string]interface{}
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms [get]
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	userID := callerID(c)

	if field := c.Query("search"); field != "" {
		rooms, err := services.SearchRooms(h.DB, userID, field)
		if err != nil {
			return serviceError(c, err, "listRooms")
		}
		return c.Status(fiber.StatusOK).JSON(roomViews(rooms))
	}

	switch c.Query("order") {
	case "popular":
		rooms, err := services.MostPopular(h.DB, userID)
		if err != nil {
			return serviceError(c, err, "listRooms")
		}
		return c.Status(fiber.StatusOK).JSON(roomViews(rooms))
	case "patrons":
		ranks, err := services.MostPatrons(h.DB, userID)
		if err != nil {
			return serviceError(c, err, "listRooms")
		}
		views := make([]fiber.Map, len(ranks))
		for i := range ranks {
			views[i] = roomView(&ranks[i].Room)
			views[i]["patrons_number"] = ranks[i].PatronsNumber
		}
		return c.Status(fiber.StatusOK).JSON(views)
	case "to_collect":
		rooms, err := services.MostToCollect(h.DB, userID)
		if err != nil {
			return serviceError(c, err, "listRooms")
		}
		return c.Status(fiber.StatusOK).JSON(roomViews(rooms))
	}

	rooms, err := services.GetVisible(h.DB, userID)
	if err != nil {
		return serviceError(c, err, "listRooms")
	}
	return c.Status(fiber.StatusOK).JSON(roomViews(rooms))
}

// CreateRoom handles POST /api/rooms
// @Summary Create a room
// @Description Create a fundraising campaign; to_collect starts at price
// @Tags Rooms
// @Accept json
// @Produce json
// @Param room body handlers.roomBody true "Room fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms [post]
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	var body roomBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	expires, ok := parseDate(body.DateExpires)
	if !ok || expires == nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Invalid or missing date_expires")
	}

	in := services.RoomInput{
		Receiver:    body.Receiver,
		Gift:        body.Gift,
		GiftURL:     body.GiftURL,
		Description: body.Description,
		Price:       int64(body.Price),
		DateExpires: *expires,
	}
	if id := body.Creator.Uint(); id != 0 {
		in.CreatorID = &id
	}
	if body.Visible != nil {
		in.Visible = *body.Visible
	}

	room, err := services.CreateRoom(h.DB, in)
	if err != nil {
		return serviceError(c, err, "createRoom")
	}
	return c.Status(fiber.StatusCreated).JSON(roomView(room))
}

// GetRoom handles GET /api/rooms/:id?user=...
// @Summary Get one room
// @Description Get a room the calling user is allowed to see
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param user query int true "Calling user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}

	room, err := services.GetRoom(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "getRoom")
	}

	ok, err := services.CanSee(h.DB, room, callerID(c))
	if err != nil {
		return serviceError(c, err, "getRoom")
	}
	if !ok {
		// Invisible rooms are indistinguishable from absent ones.
		return utils.NotFoundResponse(c, "Room not found")
	}
	return c.Status(fiber.StatusOK).JSON(roomView(room))
}

// UpdateRoom handles PUT /api/rooms/:id
// @Summary Update a room
// @Description Update the descriptive fields of a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param room body handlers.roomBody true "Room fields"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id} [put]
func (h *RoomHandler) UpdateRoom(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	var body roomBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}

	room, err := services.GetRoom(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "updateRoom")
	}

	updates := map[string]interface{}{}
	if body.Receiver != "" {
		updates["receiver"] = body.Receiver
	}
	if body.Gift != "" {
		updates["gift"] = body.Gift
	}
	if body.GiftURL != "" {
		updates["gift_url"] = body.GiftURL
	}
	if body.Description != "" {
		updates["description"] = body.Description
	}
	if body.Visible != nil {
		updates["visible"] = *body.Visible
	}
	if len(updates) > 0 {
		if err := h.DB.Model(room).Updates(updates).Error; err != nil {
			return serviceError(c, err, "updateRoom")
		}
	}
	return c.Status(fiber.StatusOK).JSON(roomView(room))
}

// Donate handles POST /api/rooms/:id/donate
// @Summary Donate to a room
// @Description Apply a donation atomically; amounts past the remaining balance are clamped
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param donation body handlers.donateBody true "Donation fields"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorMapStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/donate [post]
func (h *RoomHandler) Donate(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	var body donateBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Malformed request body")
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Invalid date")
	}

	room, err := services.Donate(h.DB, roomID, services.DonationInput{
		UserID:  body.User.Uint(),
		Amount:  int64(body.Amount),
		Date:    date,
		Comment: body.Comment,
	})
	if err != nil {
		return serviceError(c, err, "donate")
	}
	return c.Status(fiber.StatusOK).JSON(roomView(room))
}

// GetPatrons handles GET /api/rooms/:id/patrons
// @Summary List room patrons
// @Description Per-user donation totals for a room, largest first
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {array} services.PatronTotal
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/patrons [get]
func (h *RoomHandler) GetPatrons(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	patrons, err := services.GetPatrons(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "getPatrons")
	}
	return c.Status(fiber.StatusOK).JSON(patrons)
}

// GetChart handles GET /api/rooms/:id/chart
// @Summary Get donation chart data
// @Description Per-date donation sums for a room, in whole currency units
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} services.ChartData
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/chart [get]
func (h *RoomHandler) GetChart(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	chart, err := services.GetChartData(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "getChart")
	}
	return c.Status(fiber.StatusOK).JSON(chart)
}

// UpdateScore handles POST /api/rooms/:id/score
// @Summary Recompute a room's score
// @Description Recompute score from patrons, observers and collected amount
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/score [post]
func (h *RoomHandler) UpdateScore(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	score, err := services.UpdateScore(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "updateScore")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"score": score})
}

// AddObserver handles POST /api/rooms/:id/observers?user=...
// @Summary Observe a room
// @Description Add the calling user to the room's observers
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param user query int true "Calling user ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/observers [post]
func (h *RoomHandler) AddObserver(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	if err := services.AddObserver(h.DB, roomID, callerID(c)); err != nil {
		return serviceError(c, err, "addObserver")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddGuests handles POST /api/rooms/:id/guests
// @Summary Invite guests
// @Description Add one or more usernames to the room's guest list
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param guests body handlers.guestBody true "Guest usernames, one or a list"
// @Success 200 {array} string
// @Failure 400 {object} utils.ErrorMapStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/guests [post]
func (h *RoomHandler) AddGuests(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	var body guestBody
	if err := c.BodyParser(&body); err != nil || len(body.Usernames) == 0 {
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Missing usernames")
	}
	if err := services.AddGuests(h.DB, roomID, body.Usernames.Slice()); err != nil {
		return serviceError(c, err, "addGuests")
	}
	names, err := services.GetGuestNames(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "addGuests")
	}
	return c.Status(fiber.StatusOK).JSON(names)
}

// ListGuests handles GET /api/rooms/:id/guests
// @Summary List guests
// @Description List the usernames on the room's guest list
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {array} string
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/guests [get]
func (h *RoomHandler) ListGuests(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	names, err := services.GetGuestNames(h.DB, roomID)
	if err != nil {
		return serviceError(c, err, "listGuests")
	}
	return c.Status(fiber.StatusOK).JSON(names)
}

// RemoveGuest handles DELETE /api/rooms/:id/guests/:username
// @Summary Remove a guest
// @Description Remove one username from the room's guest list
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param username path string true "Guest username"
// @Success 200 {array} string
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/guests/{username} [delete]
func (h *RoomHandler) RemoveGuest(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.NotFoundResponse(c, "Room not found")
	}
	names, err := services.RemoveGuest(h.DB, roomID, c.Params("username"))
	if err != nil {
		return serviceError(c, err, "removeGuest")
	}
	return c.Status(fiber.StatusOK).JSON(names)
}
