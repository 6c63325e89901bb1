package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JsonApiResponse is the envelope every storefront endpoint answers with.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AjaxData is the payload the storefront script reads from an AJAX response.
type AjaxData struct {
	Code                string `json:"code"`
	NotificationMessage string `json:"notification_message"`
	HTML                string `json:"html,omitempty"`
}

// ApiError is a failed action, reported to the visitor as a notification.
type ApiError struct {
	Code    string
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(code, message string) *ApiError {
	return &ApiError{Code: code, Message: message}
}

func sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func sendFailureResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Data: data})
}

func sendErrorResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: message})
}
