package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	t "github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/auth"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	"github.com/google/uuid"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Use http.MaxBytesReader() to limit the size of the request body to 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		// there is no distinct error type for unknown fields, see golang/go#29035
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	// A second value in the body is an error.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// readUUIDParam parses the path wildcard name as a uuid.
func readUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

func readString(qs url.Values, key, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

func readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}
	return i
}

// readDate accepts 2006-01-02 or RFC3339. A date-only date_to covers the whole day.
func readDate(qs url.Values, key string, v *validator.Validator) *time.Time {
	s := qs.Get(key)
	if s == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return &ts
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		v.AddError(key, "must be a date in YYYY-MM-DD or RFC3339 format")
		return nil
	}
	if key == "date_to" {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d
}

func readUUID(qs url.Values, key string, v *validator.Validator) uuid.UUID {
	s := qs.Get(key)
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		v.AddError(key, "must be a valid uuid")
		return uuid.Nil
	}
	return id
}

// readTripFilters parses the query of trip listings and reports.
func readTripFilters(qs url.Values, v *validator.Validator) models.TripFilters {
	f := models.TripFilters{
		DriverID:    readUUID(qs, "driver_id", v),
		Destination: readString(qs, "destination", ""),
		Status:      t.TripStatus(strings.ToUpper(readString(qs, "status", ""))),
		DateFrom:    readDate(qs, "date_from", v),
		DateTo:      readDate(qs, "date_to", v),
		Filters: models.Filters{
			Page:         readInt(qs, "page", models.DefaultPage, v),
			PageSize:     readInt(qs, "page_size", models.DefaultPageSize, v),
			Sort:         readString(qs, "sort", "-start_date"),
			SortSafelist: []string{"-start_date", "start_date", "destination", "-destination", "effectiveness", "-effectiveness", "alert_count", "-alert_count"},
		},
	}

	f.Filters.Validate(v)
	v.Check(f.Status == "" || f.Status.Valid(), "status", "must be IN_PROGRESS or FINISHED")
	if f.DateFrom != nil && f.DateTo != nil {
		v.Check(!f.DateTo.Before(*f.DateFrom), "date_to", "must not be before date_from")
	}
	return f
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrInvalidInput):
		return http.StatusBadRequest
	case IsOneOf(err, auth.ErrInvalidCredentials, auth.ErrInvalidToken, auth.ErrExpToken):
		return http.StatusUnauthorized
	case IsOneOf(err, t.ErrForbidden, auth.ErrUserInactive):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrNotFound, t.ErrUserNotFound, t.ErrCompanyNotFound, t.ErrCityNotFound, t.ErrTripNotFound):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrEmailTaken, t.ErrRUCTaken, t.ErrCityExists, t.ErrTripAlreadyActive, t.ErrTripNotActive, t.ErrTripIsLive):
		return http.StatusConflict
	case IsOneOf(err, t.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
