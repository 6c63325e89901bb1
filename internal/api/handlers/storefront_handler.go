package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/productenquiry/internal/api/middleware"
	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/render"
	"greendrake/productenquiry/internal/services"
)

// listBlockBuilder renders the enquiry block, issuing a new captcha whenever the form is shown.
type listBlockBuilder struct {
	renderer *render.Renderer
	settings services.SettingsProvider
	captchas captcha.IChallenger
}

func newListBlockBuilder(renderer *render.Renderer, settings services.SettingsProvider, captchas captcha.IChallenger) *listBlockBuilder {
	return &listBlockBuilder{renderer: renderer, settings: settings, captchas: captchas}
}

func (b *listBlockBuilder) enabled(ctx context.Context) bool {
	return b.settings.GetSettings(ctx).Enabled
}

func (b *listBlockBuilder) build(ctx context.Context, sessionID string, list models.EnquiryList) (string, error) {
	settings := b.settings.GetSettings(ctx)
	var challenge *captcha.Challenge
	if len(list) > 0 && settings.CaptchaEnabled {
		ch, err := b.captchas.Generate(ctx, sessionID)
		if err != nil {
			return "", err
		}
		challenge = &ch
	}
	return b.renderer.ListBlock(ctx, list, settings, challenge)
}

func (b *listBlockBuilder) forSession(ctx context.Context, lists services.IEnquiryListService, sessionID string) (string, error) {
	list, err := lists.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return b.build(ctx, sessionID, list)
}

// StorefrontHandler serves the embeddable enquiry block.
type StorefrontHandler struct {
	nonces auth.INonceManager
	lists  services.IEnquiryListService
	blocks *listBlockBuilder
}

func NewStorefrontHandler(
	nonces auth.INonceManager,
	lists services.IEnquiryListService,
	settings services.SettingsProvider,
	captchas captcha.IChallenger,
	renderer *render.Renderer,
) *StorefrontHandler {
	return &StorefrontHandler{
		nonces: nonces,
		lists:  lists,
		blocks: newListBlockBuilder(renderer, settings, captchas),
	}
}

// GetEnquiryBlock handles GET /v1/enquiry. It is not found while enquiries are disabled.
func (h *StorefrontHandler) GetEnquiryBlock(c *gin.Context) {
	if !h.blocks.enabled(c.Request.Context()) {
		c.JSON(http.StatusNotFound, JsonApiResponse{Success: false, Error: "Product enquiry is disabled."})
		return
	}
	sessionID := middleware.SessionID(c)
	html, err := h.blocks.forSession(c.Request.Context(), h.lists, sessionID)
	if err != nil {
		log.Printf("ERROR: Rendering enquiry block for session %s: %v", sessionID, err)
		sendErrorResponse(c, "Enquiry list is unavailable. Please try again.")
		return
	}
	nonce, err := h.nonces.Generate(sessionID, auth.AjaxNonceAction)
	if err != nil {
		log.Printf("ERROR: Generating nonce: %v", err)
		sendErrorResponse(c, "Enquiry list is unavailable. Please try again.")
		return
	}
	sendSuccessResponse(c, gin.H{"html": html, "nonce": nonce})
}

// GetNonce handles GET /v1/nonce.
func (h *StorefrontHandler) GetNonce(c *gin.Context) {
	nonce, err := h.nonces.Generate(middleware.SessionID(c), auth.AjaxNonceAction)
	if err != nil {
		log.Printf("ERROR: Generating nonce: %v", err)
		sendErrorResponse(c, "Nonce could not be generated.")
		return
	}
	sendSuccessResponse(c, gin.H{"nonce": nonce})
}
