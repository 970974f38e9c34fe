package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/pkg/log"
)

// The admin panel reads `success` and shows `message` as an alert; extra
// keys travel next to them at the top level.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if message == "" || statusMessage == message {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, message))
	}
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	logSuccess(c, http.StatusOK, message)
	return c.Status(http.StatusOK).JSON(Response{Success: true, Message: message})
}

// ResponseSuccessWithData merges data into the envelope.
func ResponseSuccessWithData(c *fiber.Ctx, message string, data fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range data {
		if k == "success" {
			continue
		}
		body[k] = v
	}

	logSuccess(c, http.StatusOK, message)
	return c.Status(http.StatusOK).JSON(body)
}

// ResponseResult sends a value that already carries its own success flag.
// A failed result still answers 200, the panel reads the flag.
func ResponseResult(c *fiber.Ctx, success bool, message string, result interface{}) error {
	if success {
		logSuccess(c, http.StatusOK, message)
	} else {
		log.Print(c).Warn(fmt.Sprintf("%d %v", http.StatusOK, message))
	}
	return c.Status(http.StatusOK).JSON(result)
}

// ResponseJSON sends a raw payload with no envelope (stats, logs, costs).
func ResponseJSON(c *fiber.Ctx, payload interface{}) error {
	logSuccess(c, http.StatusOK, "")
	return c.Status(http.StatusOK).JSON(payload)
}

func ResponseFailure(c *fiber.Ctx, code int, message string) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}

	logError(c, code, message)
	return c.Status(code).JSON(Response{Success: false, Message: message})
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return ResponseFailure(c, http.StatusBadRequest, message)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return ResponseFailure(c, http.StatusUnauthorized, message)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return ResponseFailure(c, http.StatusNotFound, message)
}

func ResponseTooManyRequests(c *fiber.Ctx, message string) error {
	return ResponseFailure(c, http.StatusTooManyRequests, message)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return ResponseFailure(c, http.StatusInternalServerError, message)
}

// ResponseText answers with a plain body, the shape webhook providers expect.
func ResponseText(c *fiber.Ctx, code int, body string) error {
	if code >= http.StatusBadRequest {
		logError(c, code, body)
	} else {
		logSuccess(c, code, body)
	}
	return c.Status(code).SendString(body)
}
