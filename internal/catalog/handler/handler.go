package handler

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-catalog-engine/internal/catalog"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/presenter"
	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type CatalogHandler struct {
	uc        catalog.UseCase
	presenter *presenter.Presenter
	logger    logger.ZapLogger
}

func NewCatalogHandler(uc catalog.UseCase, p *presenter.Presenter, log logger.ZapLogger) *CatalogHandler {
	return &CatalogHandler{
		uc:        uc,
		presenter: p,
		logger:    log,
	}
}

func (h *CatalogHandler) ListView(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.viewResponse()
}

// SetFilter updates only the fields present in the request; a missing field
// keeps its current value.
func (h *CatalogHandler) SetFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	if v, ok := fields["category"]; ok {
		category, err := stringField(v, "category")
		if err != nil {
			return nil, err
		}
		h.uc.SetCategory(category)
	}
	if v, ok := fields["search"]; ok {
		search, err := stringField(v, "search")
		if err != nil {
			return nil, err
		}
		h.uc.SetSearch(search)
	}

	return h.viewResponse()
}

// Select marks a product as selected. An empty or null id clears the selection.
func (h *CatalogHandler) Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, ok := req.GetFields()["id"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	var id string
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
	case *structpb.Value_StringValue:
		id = strings.TrimSpace(kind.StringValue)
	case *structpb.Value_NumberValue:
		id = decimal.NewFromFloat(kind.NumberValue).String()
	default:
		return nil, status.Error(codes.InvalidArgument, "id must be a string or number")
	}

	if id == "" {
		h.uc.ClearSelection()
	} else {
		h.uc.Select(model.ProductID(id))
	}
	return h.selectionResponse()
}

func (h *CatalogHandler) GetSelection(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, ok := h.uc.Selected(); !ok {
		return nil, status.Error(codes.NotFound, "no product selected")
	}
	return h.selectionResponse()
}

func (h *CatalogHandler) ListCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	categories := h.uc.Categories()
	values := make([]any, 0, len(categories))
	for _, c := range categories {
		values = append(values, c)
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return list, nil
}

// WatchView sends the current view, then a fresh view after every change,
// until the client goes away or the engine stops.
func (h *CatalogHandler) WatchView(_ *emptypb.Empty, stream CatalogView_WatchViewServer) error {
	ctx := stream.Context()
	changes := h.uc.Watch(ctx)

	if err := h.sendView(stream); err != nil {
		return err
	}
	for range changes {
		if err := h.sendView(stream); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return status.FromContextError(ctx.Err()).Err()
	}
	return nil
}

func (h *CatalogHandler) sendView(stream CatalogView_WatchViewServer) error {
	resp, err := h.viewResponse()
	if err != nil {
		return err
	}
	if err := stream.Send(resp); err != nil {
		h.logger.Warn("failed to send view update", zap.Error(err))
		return err
	}
	return nil
}

func (h *CatalogHandler) viewResponse() (*structpb.Struct, error) {
	products := h.uc.View()
	category, search := h.uc.Filter()

	cards := make([]any, 0, len(products))
	for _, c := range h.presenter.Cards(products) {
		cards = append(cards, cardToMap(c))
	}

	body := map[string]any{
		"category": category,
		"search":   search,
		"total":    len(cards),
		"products": cards,
		"selected": nil,
	}
	if p, ok := h.uc.Selected(); ok {
		body["selected"] = cardToMap(h.presenter.Card(p))
	}

	return h.toStruct(body)
}

func (h *CatalogHandler) selectionResponse() (*structpb.Struct, error) {
	body := map[string]any{"selected": nil}
	if p, ok := h.uc.Selected(); ok {
		body["selected"] = cardToMap(h.presenter.Card(p))
	}
	return h.toStruct(body)
}

func (h *CatalogHandler) toStruct(body map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(body)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func stringField(v *structpb.Value, name string) (string, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
}

func cardToMap(c presenter.Card) map[string]any {
	badges := make([]any, 0, len(c.Badges))
	for _, b := range c.Badges {
		badges = append(badges, b)
	}

	m := map[string]any{
		"id":               c.ID,
		"name":             c.Name,
		"description":      c.Description,
		"category":         c.Category,
		"image_url":        c.ImageURL,
		"price":            c.Price,
		"base_price":       c.BasePrice,
		"price_label":      c.PriceLabel,
		"base_price_label": c.BasePriceLabel,
		"has_discount":     c.HasDiscount,
		"discount_percent": c.DiscountPercent,
		"discount_label":   c.DiscountLabel,
		"stock":            c.Stock,
		"in_stock":         c.InStock,
		"low_stock":        c.LowStock,
		"stock_label":      c.StockLabel,
		"score":            nil,
		"score_percent":    c.ScorePercent,
		"badges":           badges,
	}
	if c.Score != nil {
		m["score"] = *c.Score
	}
	return m
}
