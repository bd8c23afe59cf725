// Package configuration serves the effective daemon configuration to admins.
package configuration

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path for the configuration handler.
	Path = handler.AdminPath + "/config"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25

	maxPageSize = 100
)

// Setting types reported in Setting.Type.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
	TypeList   = "list"
	TypeNull   = "null"
)

// Service is the configuration handler service.
type Service struct {
	handler.Service
	settings []Setting
}

// Setting is one flattened configuration key, e.g. "Upload.S3.Bucket".
type Setting struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Response is one page of settings.
type Response struct {
	Items       []Setting `json:"items"`
	CurrentPage int       `json:"currentPage"`
	PageSize    int       `json:"pageSize"`
	TotalItems  int       `json:"totalItems"`
	TotalPages  int       `json:"totalPages"`
	HasPrevPage bool      `json:"hasPrevPage"`
	HasNextPage bool      `json:"hasNextPage"`
	SearchQuery string    `json:"search,omitempty"`
	FilterType  string    `json:"type,omitempty"`
}

// Init flattens the redacted configuration once and registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Config == nil || deps.JWT == nil {
		return handler.ErrNilDeps
	}

	settings, err := Flatten(config.Redacted(*deps.Config))
	if err != nil {
		return err
	}

	s.settings = settings

	deps.Protected(app, Path, models.RoleAdmin).Get(handler.RootPath, s.Get)

	return nil
}

// Get returns a filtered page of the configuration.
func (s *Service) Get(c fiber.Ctx) error {
	page, pageSize := getPaginationParams(c)
	searchQuery, filterType := c.Query("search"), c.Query("type")

	settings := make([]Setting, 0, len(s.settings))

	for _, cs := range s.settings {
		if includeSetting(cs, searchQuery, filterType) {
			settings = append(settings, cs)
		}
	}

	totalItems := len(settings)
	totalPages, page := computeTotalPagesAndAdjust(totalItems, pageSize, page)
	startIdx, endIdx := pageSliceBounds(totalItems, pageSize, page)

	return c.JSON(Response{
		Items:       settings[startIdx:endIdx],
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
		SearchQuery: searchQuery,
		FilterType:  filterType,
	})
}

// Flatten turns the configuration into a name sorted list of dotted keys.
func Flatten(cfg config.Config) ([]Setting, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	var tree map[string]any

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err = dec.Decode(&tree); err != nil {
		return nil, err //nolint:wrapcheck
	}

	var settings []Setting

	if err = flatten("", tree, &settings); err != nil {
		return nil, err
	}

	sort.Slice(settings, func(i, j int) bool { return settings[i].Name < settings[j].Name })

	return settings, nil
}

func flatten(prefix string, tree map[string]any, out *[]Setting) error {
	for key, v := range tree {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		cs := Setting{Name: name}

		switch value := v.(type) {
		case map[string]any:
			if err := flatten(name, value, out); err != nil {
				return err
			}

			continue
		case string:
			cs.Type, cs.Value = TypeString, value
		case json.Number:
			cs.Type, cs.Value = TypeNumber, value.String()
		case bool:
			cs.Type, cs.Value = TypeBool, strconv.FormatBool(value)
		case nil:
			cs.Type = TypeNull
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				return err //nolint:wrapcheck
			}

			cs.Type, cs.Value = TypeList, string(encoded)
		}

		*out = append(*out, cs)
	}

	return nil
}

// getPaginationParams parses and normalizes page and pageSize query parameters.
func getPaginationParams(c fiber.Ctx) (int, int) {
	page := handler.QueryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := handler.QueryInt(c, "pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}

// includeSetting returns true if the setting matches search and filter criteria.
func includeSetting(cs Setting, searchQuery, filterType string) bool {
	if searchQuery != "" {
		if !contains(cs.Name, searchQuery) && !contains(cs.Value, searchQuery) {
			return false
		}
	}

	if filterType != "" && cs.Type != filterType {
		return false
	}

	return true
}

// computeTotalPagesAndAdjust computes total pages and adjusts the page into range.
func computeTotalPagesAndAdjust(totalItems, pageSize, page int) (int, int) {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

// pageSliceBounds calculates start and end indices for slicing a page.
func pageSliceBounds(totalItems, pageSize, page int) (int, int) {
	startIdx := (page - 1) * pageSize

	endIdx := min(startIdx+pageSize, totalItems)

	startIdx = max(startIdx, 0)
	startIdx = min(startIdx, endIdx)

	return startIdx, endIdx
}

// contains reports whether substr is in s, ignoring case. An empty substr never matches.
func contains(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
