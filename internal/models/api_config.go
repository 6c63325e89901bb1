package models

// RateLimitConfig holds token bucket parameters.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // Tokens per second
}

// EndpointLimits overrides the default rate limits for one endpoint.
// Endpoint is an AJAX action name (e.g. "submit_enquiry") or a route path.
// Stored in the `endpoint_limits` collection.
type EndpointLimits struct {
	Endpoint string           `bson:"endpoint" json:"endpoint"`
	Soft     *RateLimitConfig `bson:"soft,omitempty" json:"soft,omitempty"`
	Hard     *RateLimitConfig `bson:"hard,omitempty" json:"hard,omitempty"`
}
