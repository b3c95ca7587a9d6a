// common.go
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
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/giftroom/internal/models"
	"github.com/localnerve/giftroom/internal/types"
	"github.com/localnerve/giftroom/internal/utils"
)

// dateInputFormat accepts plain dates from callers; anything richer goes
// through RFC 3339.
const dateInputFormat = "2006-01-02"

// parseIDParam reads a positive integer route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, err
	}
	return uint(id), nil
}

// callerID reads the acting user from the `user` query parameter. The
// auth middleware has already gated the role; the concrete domain user is
// passed explicitly, mirroring the caller contract for mutations.
func callerID(c *fiber.Ctx) uint {
	raw := c.Query("user")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// parseDate accepts "2006-01-02" or RFC 3339 input.
func parseDate(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(dateInputFormat, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	return nil, false
}

// serviceError maps service error strings onto the HTTP surface. Business
// rejections use the compact {error} map; infrastructure failures use the
// full envelope.
func serviceError(c *fiber.Ctx, err error, errorType string) error {
	switch err.Error() {
	case "not found":
		return utils.NotFoundResponse(c, "Resource not found")
	case "unauthorized":
		return utils.UnauthorizedResponse(c, "Only the author may do that")
	case "goal met":
		return utils.ErrorMapResponse(c, fiber.StatusConflict, "The goal has already been met")
	case "missing field":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Missing required fields")
	case "invalid amount":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Invalid amount")
	case "invalid parent":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Invalid parent thread")
	case "expiry window":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Expiry date must fall within 183 days")
	case "sender equals receiver":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Sender and receiver cannot be the same")
	case "zero price":
		return utils.ErrorMapResponse(c, fiber.StatusBadRequest, "Room price is zero")
	}
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
}

// roomView flattens a room to its API shape. Money renders as decimal
// text in major units; percentages are omitted for a zero price rather
// than dividing.
func roomView(room *models.Room) fiber.Map {
	view := fiber.Map{
		"id":           room.ID,
		"receiver":     room.Receiver,
		"creator":      room.CreatorID,
		"gift":         room.Gift,
		"gift_url":     room.GiftURL,
		"description":  room.Description,
		"price":        types.FormatAmount(room.Price),
		"to_collect":   types.FormatAmount(room.ToCollect),
		"collected":    types.FormatAmount(room.Collected()),
		"visible":      room.Visible,
		"is_active":    room.IsActive,
		"score":        room.Score,
		"created":      time.Time(room.Created).Format(dateInputFormat),
		"date_expires": time.Time(room.DateExpires).Format(dateInputFormat),
	}
	if left, err := room.PercentLeft(); err == nil {
		got, _ := room.PercentGot()
		view["percent_left"] = left
		view["percent_got"] = got
	}
	return view
}

// roomViews maps a room slice to API shapes.
func roomViews(rooms []models.Room) []fiber.Map {
	views := make([]fiber.Map, len(rooms))
	for i := range rooms {
		views[i] = roomView(&rooms[i])
	}
	return views
}
