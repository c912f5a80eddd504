package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/yourorg/catalog-api/internal/canon"
)

// CatalogRequest carries the catalogue query either as a JSON body or as
// query-string parameters.
type CatalogRequest struct {
	City     string   `json:"city,omitempty"`
	Type     string   `json:"type,omitempty"`
	Parking  bool     `json:"parking,omitempty"`
	MinHours *int     `json:"min_hours,omitempty"`
	MaxPrice *int     `json:"max_price,omitempty"`
	Query    string   `json:"q,omitempty"`
	Features []string `json:"features,omitempty"`
	Sort     string   `json:"sort,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Near     bool     `json:"near,omitempty"`
	View     string   `json:"view,omitempty"`
	Page     *int     `json:"page,omitempty"`
	PageSize *int     `json:"page_size,omitempty"`
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.value, e.name)
}

func parseCatalogQuery(q url.Values) (CatalogRequest, error) {
	var (
		body CatalogRequest
		err  error
	)
	body.City = q.Get("city")
	body.Type = q.Get("type")
	body.Query = q.Get("q")
	body.Sort = q.Get("sort")
	body.View = q.Get("view")
	body.Features = canon.SplitList(q["feature"]...)

	if body.Parking, err = boolParam(q, "parking"); err != nil {
		return body, err
	}
	if body.Near, err = boolParam(q, "near"); err != nil {
		return body, err
	}
	if body.MinHours, err = intParam(q, "min_hours"); err != nil {
		return body, err
	}
	if body.MaxPrice, err = intParam(q, "max_price"); err != nil {
		return body, err
	}
	if body.Page, err = intParam(q, "page"); err != nil {
		return body, err
	}
	if body.PageSize, err = intParam(q, "page_size"); err != nil {
		return body, err
	}
	if body.Lat, err = floatParam(q, "lat"); err != nil {
		return body, err
	}
	if body.Lng, err = floatParam(q, "lng"); err != nil {
		return body, err
	}
	return body, nil
}

func intParam(q url.Values, name string) (*int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, &paramError{name, v}
	}
	return &i, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &paramError{name, v}
	}
	return &f, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(q.Get(name)))
	switch v {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, &paramError{name, v}
	}
}

func defInt(v *int, d int) int {
	if v == nil {
		return d
	}
	return *v
}

func writeError(w http.ResponseWriter, req *http.Request, status int, code, detail string) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"error": code, "detail": detail})
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// clientIP expects chi's RealIP middleware to have resolved RemoteAddr.
func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
