package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greendrake/productenquiry/internal/api/middleware"
	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/cart"
	"greendrake/productenquiry/internal/metrics"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/render"
	"greendrake/productenquiry/internal/services"
	"greendrake/productenquiry/internal/validation"
)

// Storefront AJAX actions.
const (
	ActionAddProduct        = "add_product_for_enquiry"
	ActionAddVariation      = "add_variation_for_enquiry"
	ActionAddGroupedProduct = "add_grouped_products_for_enquiry"
	ActionRemoveItem        = "remove_enquiry_item"
	ActionUpdateEnquiries   = "update_enquiries"
	ActionSubmitEnquiry     = "submit_enquiry"
	ActionAddToCart         = "add_to_cart"
	ActionUpdateMiniCart    = "update_mini_cart"
)

// NonceField carries the anti-forgery token in every AJAX body.
const NonceField = "wcpe_ajax_nonce"

// Raw bodies answered instead of the JSON envelope.
const (
	SentinelUnrecognized = "0"
	SentinelSecurity     = "-1"
)

const (
	CodeSimpleProductAdded    = "wcpe-simple-product-added-for-enquiry"
	CodeSimpleProductNotAdded = "wcpe-simple-product-not-for-enquiry"
	CodeVariationAdded        = "wcpe-variation-added-for-enquiry"
	CodeVariationNotAdded     = "wcpe-variation-not-for-enquiry"
	CodeProductsAdded         = "wcpe-products-added-for-enquiry"
	CodeProductsNotAdded      = "wcpe-product-not-for-enquiry"
	CodeItemRemoved           = "wcpe-enquiry-item-removed"
	CodeInvalidItem           = "wcpe-invalid-item"
	CodeEnquiriesUpdated      = "wcpe-enquiries-updated"
	CodeEnquiriesNotUpdated   = "wcpe-enquiries-not-updated"
	CodeEnquirySubmitted      = "wcpe-enquiry-submitted"
	CodeEnquiryNotSubmitted   = "wcpe-enquiry-not-submitted"
	CodeItemsAddedToCart      = "wcpe-items-added-to-cart"
	CodeItemsNotAddedToCart   = "wcpe-items-not-added-to-cart"
)

const (
	msgAddedToList        = "%s has been added to enquiry list."
	msgRemovedFromList    = "%s has been removed from the enquiry list."
	msgEnquiriesUpdated   = "Enquiry items have been updated."
	msgEnquirySubmitted   = "Thanks for submitting the enquiry. One team shall contact you soon."
	msgItemsAddedToCart   = "Items have been added to the cart."
	msgProductNotAdded    = "Product couldn't be added to enquiry list due to some technical error. Please try again."
	msgVariationNotAdded  = "Variation couldn't be added to enquiry list due to some technical error. Please try again."
	msgProductsNotAdded   = "Products couldn't be added to enquiry list due to some technical error. Please try again."
	msgItemNotRemoved     = "Product couldn't be removed from enquiry list due to some technical error. Please try again."
	msgEnquiriesNotUpdate = "Enquiry items couldn't be updated due to some technical error. Please try again."
	msgEnquiryNotSubmit   = "Enquiry couldn't be submitted due to some technical error. Please try again."
	msgItemsNotAddedCart  = "Items couldn't be added to the cart. Please try again."
)

// ajaxReply is what an action produced: a JSON payload, or a raw body written verbatim.
type ajaxReply struct {
	data   *AjaxData
	raw    string
	result string
}

func dataReply(data AjaxData) *ajaxReply {
	return &ajaxReply{data: &data, result: metrics.ResultSuccess}
}

func rawReply(body string) *ajaxReply {
	return &ajaxReply{raw: body, result: metrics.ResultRaw}
}

func securityReply() *ajaxReply {
	return &ajaxReply{raw: SentinelSecurity, result: metrics.ResultSecurity}
}

type ajaxActionFunc func(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError)

// ProductCatalog is the catalog view the AJAX actions need.
type ProductCatalog interface {
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

// AjaxHandler serves the storefront's enquiry list actions.
type AjaxHandler struct {
	nonces      auth.INonceManager
	lists       services.IEnquiryListService
	catalog     ProductCatalog
	submissions services.ISubmissionService
	cart        cart.IClient
	blocks      *listBlockBuilder
	actions     map[string]ajaxActionFunc
}

// NewAjaxHandler creates the handler for POST /v1/ajax and POST /v1/ajax/:action.
func NewAjaxHandler(
	nonces auth.INonceManager,
	lists services.IEnquiryListService,
	catalog ProductCatalog,
	settings services.SettingsProvider,
	captchas captcha.IChallenger,
	submissions services.ISubmissionService,
	cartClient cart.IClient,
	renderer *render.Renderer,
) *AjaxHandler {
	h := &AjaxHandler{
		nonces:      nonces,
		lists:       lists,
		catalog:     catalog,
		submissions: submissions,
		cart:        cartClient,
		blocks:      newListBlockBuilder(renderer, settings, captchas),
	}
	h.actions = map[string]ajaxActionFunc{
		ActionAddProduct:        h.addProduct,
		ActionAddVariation:      h.addVariation,
		ActionAddGroupedProduct: h.addGroupedProducts,
		ActionRemoveItem:        h.removeItem,
		ActionUpdateEnquiries:   h.updateEnquiries,
		ActionSubmitEnquiry:     h.submitEnquiry,
		ActionAddToCart:         h.addToCart,
		ActionUpdateMiniCart:    h.updateMiniCart,
	}
	return h
}

// HandleAction checks the action and the nonce, then dispatches.
// On /v1/ajax/:action the body's action must name the same action as the path.
func (h *AjaxHandler) HandleAction(c *gin.Context) {
	params, err := parseAjaxParams(c)
	if err != nil {
		log.Printf("DEBUG: Unreadable AJAX body: %v", err)
		metrics.ObserveAjax("", metrics.ResultUnrecognized, false)
		sendRaw(c, SentinelUnrecognized)
		return
	}

	action := params.String("action")
	fn, known := h.actions[action]
	if !known || (c.Param("action") != "" && c.Param("action") != action) {
		metrics.ObserveAjax(action, metrics.ResultUnrecognized, known)
		sendRaw(c, SentinelUnrecognized)
		return
	}

	// With enquiries switched off no action is registered.
	if !h.blocks.enabled(c.Request.Context()) {
		metrics.ObserveAjax(action, metrics.ResultUnrecognized, true)
		sendRaw(c, SentinelUnrecognized)
		return
	}

	sessionID := middleware.SessionID(c)
	// submit_enquiry verifies its nonce as the first step of the submission workflow.
	if action != ActionSubmitEnquiry {
		if err := h.nonces.Verify(params.String(NonceField), sessionID, auth.AjaxNonceAction); err != nil {
			metrics.ObserveAjax(action, metrics.ResultSecurity, true)
			sendRaw(c, SentinelSecurity)
			return
		}
	}

	reply, apiErr := fn(c, sessionID, params)
	if apiErr != nil {
		metrics.ObserveAjax(action, metrics.ResultError, true)
		sendFailureResponse(c, AjaxData{Code: apiErr.Code, NotificationMessage: apiErr.Message})
		return
	}
	metrics.ObserveAjax(action, reply.result, true)
	if reply.data == nil {
		sendRaw(c, reply.raw)
		return
	}
	sendSuccessResponse(c, reply.data)
}

func sendRaw(c *gin.Context, body string) {
	c.Data(http.StatusOK, "text/html; charset=UTF-8", []byte(body))
}

// --- Actions ---

func (h *AjaxHandler) addProduct(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	return h.addSingle(c.Request.Context(), sessionID, p.Int("product_id"), p.Int("quantity"),
		CodeSimpleProductAdded, NewApiError(CodeSimpleProductNotAdded, msgProductNotAdded))
}

func (h *AjaxHandler) addVariation(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	return h.addSingle(c.Request.Context(), sessionID, p.Int("variation_id"), p.Int("quantity"),
		CodeVariationAdded, NewApiError(CodeVariationNotAdded, msgVariationNotAdded))
}

func (h *AjaxHandler) addSingle(ctx context.Context, sessionID string, id, quantity OptionalInt, okCode string, failure *ApiError) (*ajaxReply, *ApiError) {
	if !id.Positive() || !quantity.Positive() {
		return nil, failure
	}
	product, err := h.catalog.FindProduct(ctx, id.Value)
	if err != nil {
		if !errors.Is(err, services.ErrProductNotFound) {
			log.Printf("ERROR: Looking up item %d for enquiry: %v", id.Value, err)
		}
		return nil, failure
	}
	if err := h.lists.Upsert(ctx, sessionID, id.Value, quantity.Value); err != nil {
		if !errors.Is(err, services.ErrQuantityOutOfRange) {
			log.Printf("ERROR: Adding item %d to enquiry list: %v", id.Value, err)
		}
		return nil, failure
	}
	return dataReply(AjaxData{
		Code:                okCode,
		NotificationMessage: fmt.Sprintf(msgAddedToList, render.Escape(product.Name)),
	}), nil
}

// addGroupedProducts adds every child of a grouped product, or none of them.
func (h *AjaxHandler) addGroupedProducts(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	ctx := c.Request.Context()
	failure := NewApiError(CodeProductsNotAdded, msgProductsNotAdded)

	entries := p.List("enquiry_porducts")
	if len(entries) == 0 {
		return nil, failure
	}
	items := make([]cart.Item, 0, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		id, qty := e.Int("product_id"), e.Int("quantity")
		if !id.Positive() || !qty.Positive() {
			return nil, failure
		}
		items = append(items, cart.Item{ProductID: id.Value, Quantity: qty.Value})
		ids = append(ids, id.Value)
	}

	products, err := h.catalog.FindProducts(ctx, ids)
	if err != nil {
		log.Printf("ERROR: Looking up grouped products %v: %v", ids, err)
		return nil, failure
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		product, ok := products[it.ProductID]
		if !ok {
			return nil, failure
		}
		names = append(names, product.Name)
	}

	list, err := h.lists.Get(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: Loading enquiry list for session %s: %v", sessionID, err)
		return nil, failure
	}
	totals := make(map[int64]int64, len(items))
	for _, it := range items {
		total, seen := totals[it.ProductID]
		if !seen {
			total = list[it.ProductID].Quantity
		}
		if total > math.MaxInt64-it.Quantity {
			return nil, failure
		}
		totals[it.ProductID] = total + it.Quantity
	}

	for _, it := range items {
		if err := h.lists.Upsert(ctx, sessionID, it.ProductID, it.Quantity); err != nil {
			log.Printf("ERROR: Adding item %d to enquiry list: %v", it.ProductID, err)
			return nil, failure
		}
	}
	return dataReply(AjaxData{Code: CodeProductsAdded, NotificationMessage: render.AddedNotification(names)}), nil
}

func (h *AjaxHandler) removeItem(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	ctx := c.Request.Context()
	failure := NewApiError(CodeInvalidItem, msgItemNotRemoved)

	itemID := p.Int("item_id")
	if !itemID.Positive() {
		return nil, failure
	}
	if err := h.lists.Remove(ctx, sessionID, itemID.Value); err != nil {
		if !errors.Is(err, services.ErrItemNotFound) {
			log.Printf("ERROR: Removing item %d from enquiry list: %v", itemID.Value, err)
		}
		return nil, failure
	}

	name := render.MissingPlaceholder
	if product, err := h.catalog.FindProduct(ctx, itemID.Value); err == nil {
		name = product.Name
	}

	html, err := h.blocks.forSession(ctx, h.lists, sessionID)
	if err != nil {
		log.Printf("ERROR: Rendering enquiry list after removal: %v", err)
		return nil, failure
	}
	return dataReply(AjaxData{
		Code:                CodeItemRemoved,
		NotificationMessage: fmt.Sprintf(msgRemovedFromList, render.Escape(name)),
		HTML:                html,
	}), nil
}

// updateEnquiries replaces the whole list. Rows without a valid product id or with a
// malformed or negative quantity are dropped; a repeated product id keeps the last row.
func (h *AjaxHandler) updateEnquiries(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	ctx := c.Request.Context()
	failure := NewApiError(CodeEnquiriesNotUpdated, msgEnquiriesNotUpdate)

	list := models.EnquiryList{}
	for _, e := range p.List("enquiries") {
		id, qty := e.Int("product_id"), e.Int("quantity")
		if !id.Positive() || !qty.NonNegative() {
			log.Printf("DEBUG: Skipping enquiry row %v/%v", id, qty)
			continue
		}
		list[id.Value] = models.EnquiryLine{
			Quantity: qty.Value,
			Remarks:  validation.SanitizeText(e.String("remarks")),
		}
	}

	if err := h.lists.Replace(ctx, sessionID, list); err != nil {
		log.Printf("ERROR: Replacing enquiry list: %v", err)
		return nil, failure
	}
	html, err := h.blocks.build(ctx, sessionID, list)
	if err != nil {
		log.Printf("ERROR: Rendering updated enquiry list: %v", err)
		return nil, failure
	}
	return dataReply(AjaxData{Code: CodeEnquiriesUpdated, NotificationMessage: msgEnquiriesUpdated, HTML: html}), nil
}

func (h *AjaxHandler) submitEnquiry(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	copyFlag := p.Int("send_customer_a_copy")
	res, err := h.submissions.Submit(c.Request.Context(), services.SubmissionRequest{
		SessionID:        sessionID,
		Nonce:            p.String(NonceField),
		AuthorID:         middleware.UserID(c),
		FirstName:        p.String("first_name"),
		LastName:         p.String("last_name"),
		Email:            p.String("email"),
		Phone:            p.String("phone"),
		Comment:          p.String("comment"),
		SendCustomerCopy: copyFlag.State == IntPresent && copyFlag.Value != 0,
		CaptchaAnswer:    strings.TrimSpace(p.String("captcha_answer")),
	})
	if err != nil {
		log.Printf("ERROR: Submitting enquiry: %v", err)
		return nil, NewApiError(CodeEnquiryNotSubmitted, msgEnquiryNotSubmit)
	}

	switch res.State {
	case services.SubmissionSecurityRejected:
		return securityReply(), nil
	case services.SubmissionRejected:
		return nil, NewApiError(CodeEnquiryNotSubmitted, res.Validation.HTML())
	}

	metrics.EnquiriesSubmitted.Inc()
	log.Printf("Enquiry %d submitted (%d recipients)", res.Record.ID, len(res.Recipients))
	return dataReply(AjaxData{
		Code:                CodeEnquirySubmitted,
		NotificationMessage: msgEnquirySubmitted,
		HTML:                h.blocks.renderer.EmptyList(),
	}), nil
}

// addToCart forwards items to the cart service. An empty item list is answered like an unknown action.
func (h *AjaxHandler) addToCart(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	var items []cart.Item
	for _, e := range p.List("items") {
		id, qty := e.Int("product_id"), e.Int("quantity")
		if id.Positive() && qty.Positive() {
			items = append(items, cart.Item{ProductID: id.Value, Quantity: qty.Value})
		}
	}
	if len(items) == 0 {
		return rawReply(SentinelUnrecognized), nil
	}

	if err := h.cart.AddItems(c.Request.Context(), sessionID, items); err != nil {
		log.Printf("ERROR: Adding %d items to cart: %v", len(items), err)
		return nil, NewApiError(CodeItemsNotAddedToCart, msgItemsNotAddedCart)
	}
	return dataReply(AjaxData{Code: CodeItemsAddedToCart, NotificationMessage: msgItemsAddedToCart}), nil
}

// updateMiniCart passes the cart service's fragment through untouched.
func (h *AjaxHandler) updateMiniCart(c *gin.Context, sessionID string, p ajaxParams) (*ajaxReply, *ApiError) {
	fragment, err := h.cart.MiniCart(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("WARNING: Mini cart unavailable: %v", err)
		return rawReply(""), nil
	}
	return rawReply(fragment), nil
}
