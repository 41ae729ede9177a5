// Package api exposes the list page service over HTTP.
package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/filterfield"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listpage"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

const (
	filterParamPrefix = "f["
	filterParamSuffix = "]"
)

// Handler holds HTTP request handlers
type Handler struct {
	service *listpage.Service
	now     func() time.Time
}

// NewHandler creates a new handler instance
func NewHandler(service *listpage.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// ListPageResponse is a stored configuration with its preset filter summaries.
type ListPageResponse struct {
	Configuration *domain.ListPageConfiguration `json:"configuration"`
	Presets       []listpage.PresetDescription  `json:"presets"`
}

// ListPageRequest is the body of PUT /list-pages/:owner.
type ListPageRequest struct {
	SourceEntityType string                         `json:"source_entity_type"`
	SourceBundle     string                         `json:"source_bundle"`
	ExposedFilters   []string                       `json:"exposed_filters"`
	PresetFilters    map[string]PresetFilterRequest `json:"preset_filters"`
	Limit            int                            `json:"limit"`
}

// PresetFilterRequest is one submitted preset filter. Values is whatever the
// widget submitted: a scalar, a list or a keyed object.
type PresetFilterRequest struct {
	Operator string `json:"operator"`
	Values   any    `json:"values"`
}

// SaveListPageResponse is the stored configuration. Rejected lists the preset
// values that were left out because they did not normalize.
type SaveListPageResponse struct {
	Configuration *domain.ListPageConfiguration `json:"configuration"`
	Created       bool                          `json:"created"`
	Rejected      []string                      `json:"rejected,omitempty"`
}

// NormalizeRequest is the body of POST .../filters/:facet/normalize.
type NormalizeRequest struct {
	Values []string `json:"values"`
}

// NormalizeResponse carries the normalized values. Rejected lists the values
// that did not normalize, if any.
type NormalizeResponse struct {
	Values   []string `json:"values"`
	Rejected string   `json:"rejected,omitempty"`
}

// EntityTypes lists the selectable entity types.
func (h *Handler) EntityTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entity_types": orEmpty(h.service.EntityTypeOptions(c.Request.Context()))})
}

// Bundles lists the selectable bundles of an entity type.
func (h *Handler) Bundles(c *gin.Context) {
	options := h.service.BundleOptions(c.Request.Context(), c.Param("type"))
	c.JSON(http.StatusOK, gin.H{"bundles": orEmpty(options)})
}

// SourceFilters lists the facets of a source. An unavailable source has none.
func (h *Handler) SourceFilters(c *gin.Context) {
	filters, err := h.service.AvailableFilters(c.Request.Context(), c.Param("type"), c.Param("bundle"))
	if errors.Is(err, domain.ErrSourceUnavailable) {
		filters = nil
	} else if err != nil {
		h.respondError(c, "Listing source filters failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": orEmpty(filters)})
}

// GetListPage returns the configuration of an owner, or its defaults.
func (h *Handler) GetListPage(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.service.Get(ctx, c.Param("owner"))
	if err != nil {
		h.respondError(c, "Loading list page failed", err)
		return
	}

	resp := ListPageResponse{Configuration: cfg, Presets: []listpage.PresetDescription{}}
	if cfg.IsConfigured() {
		if presets, descErr := h.service.DescribePresetFilters(ctx, cfg); descErr == nil {
			resp.Presets = presets
		}
	}
	c.JSON(http.StatusOK, resp)
}

// PutListPage stores the configuration of an owner.
func (h *Handler) PutListPage(c *gin.Context) {
	var req ListPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cfg, err := req.toConfiguration(c.Param("owner"))
	if err != nil {
		h.respondError(c, "Invalid list page", err)
		return
	}
	result, err := h.service.Save(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, "Saving list page failed", err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("List page saved",
		logger.OwnerID(cfg.OwnerID),
		logger.Source(cfg.SourceEntityType, cfg.SourceBundle),
		logger.Int("rejected", len(result.Rejected)),
	)
	c.JSON(http.StatusOK, SaveListPageResponse{
		Configuration: cfg,
		Created:       result.Created,
		Rejected:      result.Rejected,
	})
}

func (r ListPageRequest) toConfiguration(ownerID string) (*domain.ListPageConfiguration, error) {
	cfg := &domain.ListPageConfiguration{
		OwnerID:          ownerID,
		SourceEntityType: r.SourceEntityType,
		SourceBundle:     r.SourceBundle,
		ExposedFilters:   r.ExposedFilters,
		PresetFilters:    make(map[string]domain.PresetFilter, len(r.PresetFilters)),
		Limit:            r.Limit,
	}
	for id, pf := range r.PresetFilters {
		op, err := domain.ParseOperator(pf.Operator)
		if err != nil {
			return nil, errors.Join(err, domain.ErrInvalidSubmittedValue)
		}
		filter := filterfield.PrepareDefaultFilterValue(id, pf.Values)
		filter.Operator = op
		cfg.PresetFilters[id] = filter
	}
	return cfg, nil
}

// DeleteListPage removes the configuration of an owner.
func (h *Handler) DeleteListPage(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("owner")); err != nil {
		h.respondError(c, "Deleting list page failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Results runs a visitor search. Active facet values are passed as
// f[facet]=value, repeatable; page is 1-based and counted in pages of the
// effective size, which the service may cap.
func (h *Handler) Results(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.service.Get(ctx, c.Param("owner"))
	if err != nil {
		h.respondError(c, "Loading list page failed", err)
		return
	}

	req, err := parseSearchRequest(c.Request.URL.Query())
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	result, err := h.service.Search(ctx, cfg, req)
	if err != nil {
		h.respondError(c, "Search failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseSearchRequest(values url.Values) (listpage.Request, error) {
	req := listpage.Request{Active: make(map[string][]string)}

	for key, vals := range values {
		if !strings.HasPrefix(key, filterParamPrefix) || !strings.HasSuffix(key, filterParamSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(key, filterParamPrefix), filterParamSuffix)
		if id == "" {
			continue
		}
		req.Active[id] = append(req.Active[id], filterfield.PrepareValueForURL(vals)...)
	}

	size, err := intParam(values, "size")
	if err != nil {
		return req, err
	}
	page, err := intParam(values, "page")
	if err != nil {
		return req, err
	}
	req.Limit = size
	req.Page = page

	for _, lang := range values["lang"] {
		for part := range strings.SplitSeq(lang, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.Languages = append(req.Languages, part)
			}
		}
	}
	return req, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return n, nil
}

// Links returns the link list of a list page.
func (h *Handler) Links(c *gin.Context) {
	ctx := c.Request.Context()
	limit, err := intParam(c.Request.URL.Query(), "limit")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	cfg, err := h.service.Get(ctx, c.Param("owner"))
	if err != nil {
		h.respondError(c, "Loading list page failed", err)
		return
	}
	links, err := h.service.GetLinks(ctx, cfg, limit)
	if err != nil {
		h.respondError(c, "Listing links failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// FilterInput describes the preset value input of a facet.
func (h *Handler) FilterInput(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.service.Get(ctx, c.Param("owner"))
	if err != nil {
		h.respondError(c, "Loading list page failed", err)
		return
	}
	element, err := h.service.DefaultValueInput(ctx, cfg, c.Param("facet"))
	if err != nil {
		h.respondError(c, "Building filter input failed", err)
		return
	}
	c.JSON(http.StatusOK, element)
}

// NormalizeFilter normalizes submitted values of a facet. Values that do not
// normalize are dropped and reported.
func (h *Handler) NormalizeFilter(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.service.Get(ctx, c.Param("owner"))
	if err != nil {
		h.respondError(c, "Loading list page failed", err)
		return
	}

	values, err := h.service.NormalizeFilterValues(ctx, cfg, c.Param("facet"), req.Values)
	resp := NormalizeResponse{Values: values}
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidSubmittedValue) {
			h.respondError(c, "Normalizing filter values failed", err)
			return
		}
		resp.Rejected = err.Error()
	}
	if resp.Values == nil {
		resp.Values = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

func orEmpty(options []domain.Option) []domain.Option {
	if options == nil {
		return []domain.Option{}
	}
	return options
}
