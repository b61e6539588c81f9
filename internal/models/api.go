package models

import (
	"errors"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Method is an HTTP method an API node can describe.
type Method string

// HTTP methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// BodyType selects which request body representation is active.
type BodyType string

// Body types.
const (
	BodyNone       BodyType = "none"
	BodyFormData   BodyType = "form-data"
	BodyURLEncoded BodyType = "x-www-form-urlencoded"
	BodyJSON       BodyType = "json"
)

// AuthType selects the request authentication scheme.
type AuthType string

// Auth types.
const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthOAuth2 AuthType = "oauth2"
)

// Form field value types.
const (
	ValueTypeText = "text"
	ValueTypeFile = "file"
)

// DefaultResponseContent is the body a newly added response starts with.
const DefaultResponseContent = "{}"

var httpCodePattern = regexp.MustCompile(`^\d{1,3}$`)

// KeyValue is one row of an ordered parameter list. Duplicate keys are allowed.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FormField is one multipart form row.
type FormField struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
}

// Validate validates the form field.
func (f FormField) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ValueType, validation.In(ValueTypeText, ValueTypeFile)),
	)
}

// Body is the request body. Only the representation selected by Type is
// meaningful; the others are retained so switching back restores them.
type Body struct {
	Type       BodyType    `json:"type"`
	FormData   []FormField `json:"formData"`
	URLEncoded []KeyValue  `json:"urlEncoded"`
	Content    string      `json:"content"`
}

// Validate validates the body.
func (b Body) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Type, validation.Required, validation.In(BodyNone, BodyFormData, BodyURLEncoded, BodyJSON)),
		validation.Field(&b.FormData),
	)
}

// Auth is the request authentication.
type Auth struct {
	Type  AuthType `json:"type"`
	Token string   `json:"token"`
}

// Validate validates the auth block.
func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required, validation.In(AuthNone, AuthBearer, AuthBasic, AuthOAuth2)),
	)
}

// Response is one entry of an API node's response catalog.
type Response struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// NewResponse returns an empty response with a "{}" body.
func NewResponse() Response {
	return Response{Content: DefaultResponseContent}
}

// Validate validates the response.
func (r Response) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Match(httpCodePattern), validation.By(httpCodeInRange)),
		validation.Field(&r.Content, validation.By(jsonText)),
	)
}

func httpCodeInRange(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 100 || n > 599 {
		return errors.New("must be an HTTP status code between 100 and 599")
	}
	return nil
}

func jsonText(value any) error {
	s, _ := value.(string)
	if !ValidJSON(s) {
		return errors.New(InvalidJSONMessage)
	}
	return nil
}

// APIConfig describes an HTTP request and its documented responses.
type APIConfig struct {
	Method      Method     `json:"method"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Params      []KeyValue `json:"params"`
	Headers     []KeyValue `json:"headers"`
	Body        Body       `json:"body"`
	Auth        Auth       `json:"auth"`
	Responses   []Response `json:"responses"`
}

// NewAPIConfig returns the default API payload.
func NewAPIConfig() *APIConfig {
	return &APIConfig{
		Method:    MethodGet,
		Params:    []KeyValue{},
		Headers:   []KeyValue{},
		Body:      Body{Type: BodyNone, FormData: []FormField{}, URLEncoded: []KeyValue{}},
		Auth:      Auth{Type: AuthNone},
		Responses: []Response{},
	}
}

// Kind implements Config.
func (c *APIConfig) Kind() Kind { return KindAPI }

// Clone implements Config.
func (c *APIConfig) Clone() Config {
	out := *c
	out.Params = cloneSlice(c.Params)
	out.Headers = cloneSlice(c.Headers)
	out.Body.FormData = cloneSlice(c.Body.FormData)
	out.Body.URLEncoded = cloneSlice(c.Body.URLEncoded)
	out.Responses = cloneSlice(c.Responses)
	return &out
}

// Validate implements Config. JSON body text is not checked here: an
// invalid body is kept as typed and reported inline by the editor.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Method, validation.Required, validation.In(MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch)),
		validation.Field(&c.Body),
		validation.Field(&c.Auth),
		validation.Field(&c.Responses),
	)
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
