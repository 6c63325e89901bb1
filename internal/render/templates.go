package render

import "html/template"

const emptyListHTML = `<p class="cart-empty woocommerce-info">You have not yet added any product to your enquiry list.</p>
<p class="return-to-shop">
	<a class="button wc-backward" href="{{.ShopURL}}">Return to shop</a>
</p>
`

const tableHTML = `<table class="wcpe-enquiries-table shop_table shop_table_responsive cart woocommerce-cart-form__contents" cellspacing="0">
	<thead>
	<tr>
		<th class="product-remove">&nbsp;</th>
		<th class="product-thumbnail">&nbsp;</th>
		<th class="product-name">Product</th>
		<th class="product-quantity">Quantity</th>
		<th class="product-subtotal">Subtotal</th>
		<th class="product-remarks">Remarks</th>
	</tr>
	</thead>
	<tbody>
	{{- range .Rows}}
	<tr class="woocommerce-cart-form__cart-item cart_item" data-id="{{.ItemID}}">
		<td class="product-remove"><a href="#" class="remove wcpe-remove-enquiry-item">×</a></td>
		<td class="product-thumbnail">
			<a href="{{.Permalink}}"><img width="324" height="324" src="{{.Thumbnail}}" class="attachment-woocommerce_thumbnail size-woocommerce_thumbnail" alt=""></a>
		</td>
		<td class="product-name"><a href="{{.Permalink}}">{{.Name}}</a><br />{{.Price}}</td>
		<td class="product-quantity">
			<div class="quantity">
				<input type="number" id="item-{{.ItemID}}-quantity" class="input-text qty text" step="1" min="0" value="{{.Quantity}}" title="Qty" size="4" inputmode="numeric">
			</div>
		</td>
		<td class="product-subtotal">{{.Subtotal}}</td>
		<td class="product-remarks"><textarea id="item-{{.ItemID}}-remarks">{{.Remarks}}</textarea></td>
	</tr>
	{{- end}}
	<tr>
		<td class="actions" colspan="6">
			<button type="button" class="button wcpe-add-to-cart">Add to cart</button>
			<button type="button" class="button wcpe-update-enquiries">Update</button>
		</td>
	</tr>
	</tbody>
</table>
<div class="cart-collaterals">
	<div class="cart_totals ">
		<h2>Item totals</h2>
		<table cellspacing="0" class="shop_table shop_table_responsive">
			<tbody>
			<tr class="order-total">
				<th>Total</th>
				<td data-title="Total"><strong>{{.Total}}</strong></td>
			</tr>
			</tbody>
		</table>
	</div>
</div>
`

const formHTML = `<div class="col2-set" id="customer_details">
	<div class="col-1">
		<div class="woocommerce-billing-fields">
			<h3>Complete your enquiry</h3>
			<div class="woocommerce-billing-fields__field-wrapper">
				<p class="form-row form-row-first">
					<label for="wcpe-enquiry-first-name">First name&nbsp;<abbr class="required" title="required">*</abbr></label>
					<span class="woocommerce-input-wrapper"><input type="text" class="input-text" id="wcpe-enquiry-first-name" name="first_name" placeholder="John"></span>
				</p>
				<p class="form-row form-row-last">
					<label for="wcpe-enquiry-last-name">Last name&nbsp;<abbr class="required" title="required">*</abbr></label>
					<span class="woocommerce-input-wrapper"><input type="text" class="input-text" id="wcpe-enquiry-last-name" name="last_name" placeholder="Doe"></span>
				</p>
				<p class="form-row form-row-wide">
					<label for="wcpe-enquiry-phone">Phone&nbsp;<abbr class="required" title="required">*</abbr></label>
					<span class="woocommerce-input-wrapper"><input type="tel" class="input-text" id="wcpe-enquiry-phone" name="phone" placeholder="+91 9889988998" pattern="{{.PhonePattern}}"></span>
				</p>
				<p class="form-row form-row-wide">
					<label for="wcpe-enquiry-email">Email address&nbsp;<abbr class="required" title="required">*</abbr></label>
					<span class="woocommerce-input-wrapper"><input type="email" class="input-text" id="wcpe-enquiry-email" name="email" placeholder="john.doe@example.com" pattern="{{.EmailPattern}}"></span>
				</p>
				<p class="form-row notes">
					<label for="wcpe-enquiry-comment">Enquiry&nbsp;<span class="optional">(optional)</span></label>
					<span class="woocommerce-input-wrapper"><textarea class="input-text" id="wcpe-enquiry-comment" name="comment" placeholder="Notes about your enquiry.."></textarea></span>
				</p>
				{{- if .Captcha}}
				<p class="form-row form-row-wide">
					<label for="wcpe-captcha-ans">Are you human, or spambot?&nbsp;<abbr class="required" title="required">*</abbr></label>
					<span class="woocommerce-input-wrapper">
						<span class="wcpe-captcha-question">{{.Captcha}}</span>
						<input type="number" class="input-text" id="wcpe-captcha-ans" name="captcha_answer">
					</span>
				</p>
				{{- end}}
				<p class="form-row wcpe-send-customer-copy-field">
					<label for="wcpe-enquiry-send-customer-a-copy">Send me a copy</label>
					<span class="woocommerce-input-wrapper"><input type="checkbox" id="wcpe-enquiry-send-customer-a-copy" name="send_customer_a_copy" value="1" /></span>
				</p>
				{{- if .PrivacyPolicy}}
				<p class="form-row wcpe-privacy-policy-field">
					<label for="wcpe-privacy-policy-message">{{.PrivacyPolicy}}</label>
					<span class="woocommerce-input-wrapper"><input type="checkbox" id="wcpe-privacy-policy-message" /></span>
				</p>
				{{- end}}
			</div>
			<div class="wc-proceed-to-checkout">
				<a href="#" class="checkout-button button alt wc-forward wcpe-submit-enquiry">Submit</a>
			</div>
		</div>
	</div>
</div>
`

const addedNotificationHTML = `<ul class="wcpe-products-list-in-notification">{{range .}}<li>{{.}} has been added to enquiry list.</li>{{end}}</ul>`

var (
	emptyListTmpl         = template.Must(template.New("empty").Parse(emptyListHTML))
	tableTmpl             = template.Must(template.New("table").Parse(tableHTML))
	formTmpl              = template.Must(template.New("form").Parse(formHTML))
	addedNotificationTmpl = template.Must(template.New("added").Parse(addedNotificationHTML))
)
