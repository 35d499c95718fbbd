package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/models"
	pkgerrors "github.com/pkg/errors"
)

// MaxURLLength matches the limit browsers and most CDNs accept for a URL.
const MaxURLLength = 2083

const validationFailed = "Validation failed"

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.validate.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		return v.ValidateURL(fl.Field().String()) == nil
	})

	return v
}

// ValidateURL accepts absolute http and https URLs with a host.
func (v *Validator) ValidateURL(rawURL string) error {
	const op = "Validator.ValidateURL"

	if rawURL == "" {
		return errors.Validation(op, nil, "URL is required")
	}

	if len(rawURL) > MaxURLLength {
		return errors.Validation(op, nil, fmt.Sprintf("URL must be at most %d characters", MaxURLLength))
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.Validation(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.Validation(op, nil, "URL must use HTTP or HTTPS")
	}

	if parsedURL.Hostname() == "" {
		return errors.Validation(op, nil, "URL must have a host")
	}

	return nil
}

// ValidateRequest decodes a raw JSON body into a VideoInput and checks it
// against the request schema. The video URL is kept exactly as sent.
func (v *Validator) ValidateRequest(raw []byte) (models.VideoInput, error) {
	const op = "Validator.ValidateRequest"

	if len(bytes.TrimSpace(raw)) == 0 {
		return models.VideoInput{}, errors.Validation(op, nil, validationFailed,
			errors.FieldError{Field: "body", Message: "field required"})
	}

	var input models.VideoInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return models.VideoInput{}, decodeError(op, err)
	}

	if err := v.ValidateInput(input); err != nil {
		return models.VideoInput{}, err
	}

	return input, nil
}

// ValidateInput checks an already decoded VideoInput. Numeric fields are not
// range checked; negative heights and club lengths pass.
func (v *Validator) ValidateInput(input models.VideoInput) error {
	const op = "Validator.ValidateInput"

	if err := v.validate.Struct(input); err != nil {
		return errors.Validation(op, err, validationFailed, fieldErrors(err)...)
	}
	return nil
}

// SerializeResponse returns a copy of resp ready for encoding: every list is
// non-nil and the required fields are checked. A response that fails the
// check is a server-side bug and reported as an internal error.
func (v *Validator) SerializeResponse(resp *models.AnalysisResponse) (*models.AnalysisResponse, error) {
	const op = "Validator.SerializeResponse"

	if resp == nil {
		return nil, errors.Internal(op, nil, "Analysis response is missing")
	}

	out := &models.AnalysisResponse{
		VideoURL:       resp.VideoURL,
		Segments:       cloneOrEmpty(resp.Segments),
		KeyMetrics:     cloneOrEmpty(resp.KeyMetrics),
		CoachingCues:   cloneOrEmpty(resp.CoachingCues),
		ProComparisons: make([]models.Comparison, len(resp.ProComparisons)),
	}
	for i, c := range resp.ProComparisons {
		c.Strengths = cloneOrEmpty(c.Strengths)
		c.Deltas = cloneOrEmpty(c.Deltas)
		out.ProComparisons[i] = c
	}

	if err := v.validate.Struct(out); err != nil {
		return nil, errors.Internal(op, err, "Analysis response failed schema validation")
	}

	return out, nil
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	AllowedMethods   []string
	RequireJSON      bool
}

// CheckHTTPRequest validates the request line and headers before the body is read.
func (v *Validator) CheckHTTPRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.CheckHTTPRequest"

	if len(opts.AllowedMethods) > 0 {
		methodAllowed := false
		for _, method := range opts.AllowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return errors.InvalidInput(op, nil, fmt.Sprintf("Method %s not allowed", r.Method))
		}
	}

	// A missing Content-Type is read as JSON.
	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); contentType != "" && !isJSONMediaType(contentType) {
			return errors.InvalidInput(op, nil, "Content-Type must be application/json")
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.InvalidInput(op, nil, "Request body too large")
	}

	return nil
}

// isJSONMediaType reports whether contentType is application/json or a
// structured +json type such as application/problem+json.
func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func decodeError(op string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if pkgerrors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return errors.Validation(op, err, validationFailed,
				errors.FieldError{Field: "body", Message: "must be a JSON object"})
		}
		return errors.Validation(op, err, validationFailed,
			errors.FieldError{Field: typeErr.Field, Message: "must be a " + jsonKind(typeErr.Type)})
	}

	return errors.Validation(op, err, validationFailed,
		errors.FieldError{Field: "body", Message: "invalid JSON"})
}

func jsonKind(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice:
		return "list"
	case reflect.Struct, reflect.Map:
		return "JSON object"
	default:
		return t.Kind().String()
	}
}

func fieldErrors(err error) []errors.FieldError {
	var verrs validator.ValidationErrors
	if !pkgerrors.As(err, &verrs) {
		return nil
	}

	details := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, errors.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return details
}

// fieldPath drops the struct name validator puts at the front of a namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "weburl":
		return "must be a valid http or https URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func cloneOrEmpty[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
