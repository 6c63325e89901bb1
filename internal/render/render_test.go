package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/models"
)

type stubProducts map[int64]*models.Product

func (s stubProducts) FindProducts(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := map[int64]*models.Product{}
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type failingProducts struct{}

func (failingProducts) FindProducts(context.Context, []int64) (map[int64]*models.Product, error) {
	return nil, errors.New("catalog offline")
}

func newTestRenderer() *Renderer {
	return NewRenderer(stubProducts{
		10: {ID: 10, Name: "Oak Chair", Price: 12.5, Permalink: "https://shop.example/oak-chair", Thumbnail: "https://shop.example/oak.jpg"},
		20: {ID: 20, Name: "Pine <Table>", Price: 100, Permalink: "https://shop.example/pine-table"},
	}, "https://shop.example/shop", "$")
}

func TestEmptyList(t *testing.T) {
	html := newTestRenderer().EmptyList()
	assert.Contains(t, html, "You have not yet added any product to your enquiry list.")
	assert.Contains(t, html, `href="https://shop.example/shop"`)
	assert.Contains(t, html, "Return to shop")
}

func TestTable_RowsTotalsAndOrder(t *testing.T) {
	list := models.EnquiryList{
		20: {Quantity: 1, Remarks: "<b>gift</b>"},
		10: {Quantity: 2},
		99: {Quantity: 3},
	}
	html, err := newTestRenderer().Table(context.Background(), list)
	require.NoError(t, err)

	i10 := strings.Index(html, `data-id="10"`)
	i20 := strings.Index(html, `data-id="20"`)
	i99 := strings.Index(html, `data-id="99"`)
	require.True(t, i10 >= 0 && i20 >= 0 && i99 >= 0)
	assert.True(t, i10 < i20 && i20 < i99, "rows are in ascending item order")

	assert.Contains(t, html, "Oak Chair</a><br />$12.50")
	assert.Contains(t, html, "$25.00")
	assert.Contains(t, html, "Pine &lt;Table&gt;")
	assert.Contains(t, html, "&lt;b&gt;gift&lt;/b&gt;")
	assert.Contains(t, html, `<strong>$125.00</strong>`)
	assert.Contains(t, html, `id="item-99-quantity"`)
	assert.Contains(t, html, MissingPlaceholder)
}

func TestTable_CatalogFailure(t *testing.T) {
	r := NewRenderer(failingProducts{}, "/shop", "$")
	_, err := r.Table(context.Background(), models.EnquiryList{1: {Quantity: 1}})
	assert.Error(t, err)
}

func TestForm_CaptchaAndPrivacy(t *testing.T) {
	r := newTestRenderer()
	ch := &captcha.Challenge{A: 3, B: 4}

	html, err := r.Form(models.Settings{CaptchaEnabled: true, PrivacyPolicyMessage: "I agree to the terms"}, ch)
	require.NoError(t, err)
	assert.Contains(t, html, "3 + 4 = ?")
	assert.Contains(t, html, `name="captcha_answer"`)
	assert.Contains(t, html, "I agree to the terms")

	html, err = r.Form(models.Settings{PrivacyPolicyMessage: `I accept the <a href="https://shop.example.com/privacy">privacy policy</a><script>alert(1)</script>`}, nil)
	require.NoError(t, err)
	assert.Contains(t, html, `<a href="https://shop.example.com/privacy" rel="nofollow">privacy policy</a>`)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "&lt;a")

	html, err = r.Form(models.Settings{CaptchaEnabled: false}, ch)
	require.NoError(t, err)
	assert.NotContains(t, html, "captcha_answer")
	assert.NotContains(t, html, "wcpe-privacy-policy-field")
}

func TestListBlock(t *testing.T) {
	r := newTestRenderer()

	html, err := r.ListBlock(context.Background(), models.EnquiryList{}, models.Settings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, r.EmptyList(), html)

	html, err = r.ListBlock(context.Background(), models.EnquiryList{10: {Quantity: 1}}, models.Settings{}, nil)
	require.NoError(t, err)
	assert.Contains(t, html, "wcpe-enquiries-table")
	assert.Contains(t, html, "wcpe-submit-enquiry")
}

func TestAddedNotification(t *testing.T) {
	assert.Equal(t,
		`<ul class="wcpe-products-list-in-notification"><li>Oak Chair has been added to enquiry list.</li><li>A &amp; B has been added to enquiry list.</li></ul>`,
		AddedNotification([]string{"Oak Chair", "A & B"}))
}
