// Package validation checks raw request parameters before any cache lookup or
// upstream call. Every failed field is reported, not just the first.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	_ "time/tzdata" // timezone checks must not depend on the host tz database

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const (
	MinQueryLen = 2
	MaxQueryLen = 200

	MinHours     = 12
	MaxHours     = 48
	DefaultHours = 24
)

// ErrInvalid is matched by every *Error via errors.Is.
var ErrInvalid = errors.New("invalid request")

// FieldError describes one failed parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries all failed fields of one request.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	return ErrInvalid.Error() + ": " + e.Details()
}

// Details renders the failed fields as "field: message; field: message".
func (e *Error) Details() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("param"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type queryParams struct {
	Query string `param:"query" validate:"required,min=2,max=200"`
}

type weatherParams struct {
	Latitude  string `param:"latitude" validate:"required,latitude"`
	Longitude string `param:"longitude" validate:"required,longitude"`
	Timezone  string `param:"timezone" validate:"required,timezone"`
}

type summaryParams struct {
	weatherParams
	Units string `param:"units" validate:"omitempty,oneof=metric imperial"`
	Hours int    `param:"hours" validate:"min=12,max=48"`
}

// Query validates a free-text search term (geocode, image) and returns it trimmed.
func Query(raw string) (string, error) {
	p := queryParams{Query: strings.TrimSpace(raw)}
	if fields := check(p); len(fields) > 0 {
		return "", &Error{Fields: fields}
	}
	return p.Query, nil
}

// Weather validates forecast coordinates and timezone.
func Weather(lat, lon, tz string) (models.WeatherQuery, error) {
	p := weatherParams{
		Latitude:  strings.TrimSpace(lat),
		Longitude: strings.TrimSpace(lon),
		Timezone:  strings.TrimSpace(tz),
	}
	if fields := check(p); len(fields) > 0 {
		return models.WeatherQuery{}, &Error{Fields: fields}
	}
	return p.query(), nil
}

// Summary validates forecast parameters plus the optional units and hours.
// Hours defaults to DefaultHours when absent.
func Summary(lat, lon, tz, units, hours string) (models.SummaryQuery, error) {
	p := summaryParams{
		weatherParams: weatherParams{
			Latitude:  strings.TrimSpace(lat),
			Longitude: strings.TrimSpace(lon),
			Timezone:  strings.TrimSpace(tz),
		},
		Units: strings.ToLower(strings.TrimSpace(units)),
		Hours: DefaultHours,
	}

	var fields []FieldError
	if h := strings.TrimSpace(hours); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil {
			fields = append(fields, FieldError{Field: "hours", Message: "must be an integer"})
		} else {
			p.Hours = n
		}
	}
	fields = append(check(p), fields...)
	if len(fields) > 0 {
		return models.SummaryQuery{}, &Error{Fields: fields}
	}
	return models.SummaryQuery{
		WeatherQuery: p.query(),
		Units:        models.Units(p.Units),
		Hours:        p.Hours,
	}, nil
}

// query converts already-validated parameters.
func (p weatherParams) query() models.WeatherQuery {
	lat, _ := strconv.ParseFloat(p.Latitude, 64)
	lon, _ := strconv.ParseFloat(p.Longitude, 64)
	return models.WeatherQuery{Latitude: lat, Longitude: lon, Timezone: p.Timezone}
}

func check(s any) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "request", Message: err.Error()}}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be between %d and %d characters", MinQueryLen, MaxQueryLen)
		}
		return fmt.Sprintf("must be between %d and %d", MinHours, MaxHours)
	case "latitude":
		return "must be a number between -90 and 90"
	case "longitude":
		return "must be a number between -180 and 180"
	case "timezone":
		return "must be a valid IANA timezone name"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
