package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxAjaxBodyBytes = 1 << 20

// IntState says whether an integer input was sent and whether it parsed.
type IntState int

const (
	IntAbsent IntState = iota
	IntMalformed
	IntPresent
)

// OptionalInt is an integer request field that keeps "not sent" and "not a number"
// apart from a real zero.
type OptionalInt struct {
	State IntState
	Value int64
}

// Positive reports a well-formed value greater than zero.
func (o OptionalInt) Positive() bool {
	return o.State == IntPresent && o.Value > 0
}

// NonNegative reports a well-formed value of zero or more.
func (o OptionalInt) NonNegative() bool {
	return o.State == IntPresent && o.Value >= 0
}

// ParseOptionalInt reads a raw field. Empty input counts as absent.
func ParseOptionalInt(raw string, sent bool) OptionalInt {
	raw = strings.TrimSpace(raw)
	if !sent || raw == "" {
		return OptionalInt{State: IntAbsent}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return OptionalInt{State: IntMalformed}
	}
	return OptionalInt{State: IntPresent, Value: v}
}

// ajaxParams is a request body decoded into nested maps, whichever encoding it arrived in.
// Leaves are strings, json.Number or bool; nested values are maps or slices.
type ajaxParams map[string]interface{}

// parseAjaxParams decodes a JSON body, or a form body using bracket notation
// (enquiries[0][product_id]=5) into the same shape.
func parseAjaxParams(c *gin.Context) (ajaxParams, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAjaxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		params := ajaxParams{}
		if len(bytes.TrimSpace(body)) == 0 {
			return params, nil
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			return nil, fmt.Errorf("invalid JSON request body: %w", err)
		}
		return params, nil
	}

	c.Request.Body = io.NopCloser(io.LimitReader(c.Request.Body, maxAjaxBodyBytes))
	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return paramsFromForm(c.Request.PostForm), nil
}

func paramsFromForm(form url.Values) ajaxParams {
	params := ajaxParams{}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := form[key]
		if len(values) == 0 {
			continue
		}
		path := splitBracketKey(key)
		node := map[string]interface{}(params)
		for i, seg := range path {
			if seg == "" {
				seg = strconv.Itoa(len(node))
			}
			if i == len(path)-1 {
				node[seg] = values[0]
				break
			}
			child, ok := node[seg].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[seg] = child
			}
			node = child
		}
	}
	return params
}

// splitBracketKey turns "a[0][b]" into ["a", "0", "b"].
func splitBracketKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	path := []string{key[:open]}
	for _, seg := range strings.Split(key[open+1:len(key)-1], "][") {
		path = append(path, seg)
	}
	return path
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	}
	return "", false
}

// String returns a top-level text field, or "" when it is absent or not text.
func (p ajaxParams) String(key string) string {
	s, _ := scalarString(p[key])
	return s
}

// Int returns a top-level integer field.
func (p ajaxParams) Int(key string) OptionalInt {
	return intField(p, key)
}

// List returns the entries of an array field. Form-encoded arrays arrive as maps keyed
// by index; entries are ordered by that index. Entries that are not objects are dropped.
func (p ajaxParams) List(key string) []ajaxParams {
	var out []ajaxParams
	switch t := p[key].(type) {
	case []interface{}:
		for _, v := range t {
			if m, ok := v.(map[string]interface{}); ok {
				out = append(out, ajaxParams(m))
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			if (errA == nil) != (errB == nil) {
				return errA == nil
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			if m, ok := t[k].(map[string]interface{}); ok {
				out = append(out, ajaxParams(m))
			}
		}
	}
	return out
}

func intField(m map[string]interface{}, key string) OptionalInt {
	v, sent := m[key]
	if !sent || v == nil {
		return OptionalInt{State: IntAbsent}
	}
	s, ok := scalarString(v)
	if !ok {
		return OptionalInt{State: IntMalformed}
	}
	return ParseOptionalInt(s, true)
}
