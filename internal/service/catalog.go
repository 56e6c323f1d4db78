package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/media"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrItemNotFound     = apperr.NotFoundf("item not found")
	ErrVideoRequired    = apperr.Invalid("video is required")
	ErrNonPositivePrice = apperr.Invalid("price must be positive")
)

const itemCacheTTL = 60 * time.Second

type CatalogService struct {
	itemRepo    repository.ItemRepository
	restRepo    repository.RestaurantRepository
	media       media.Store
	redisClient *redis.Client
	log         *slog.Logger
}

func NewCatalogService(
	itemRepo repository.ItemRepository,
	restRepo repository.RestaurantRepository,
	store media.Store,
	redisClient *redis.Client,
	log *slog.Logger,
) *CatalogService {
	return &CatalogService{itemRepo: itemRepo, restRepo: restRepo, media: store, redisClient: redisClient, log: log}
}

// Create uploads the item media, persists the item and links it to the owning restaurant.
// Uploads finish before the item is written; a failed upload aborts creation.
func (s *CatalogService) Create(ctx context.Context, restaurantID uuid.UUID, in dto.CreateItemInput) (*dto.ItemResponse, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.Category) == "" {
		return nil, apperr.Invalid("name, description and category are required")
	}
	if !in.Price.IsPositive() {
		return nil, ErrNonPositivePrice
	}
	if in.Video == nil {
		return nil, ErrVideoRequired
	}

	rest, err := s.restRepo.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if rest == nil {
		return nil, ErrRestaurantNotFound
	}

	item := &model.Item{
		RestaurantID: restaurantID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
	}

	item.VideoURL, err = s.media.Store(ctx, in.Video, media.KindVideo)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "upload video")
	}
	if in.Image != nil {
		item.ImageURL, err = s.media.Store(ctx, in.Image, media.KindImage)
		if err != nil {
			s.discardMedia(ctx, item.VideoURL)
			return nil, apperr.Wrap(apperr.Internal, err, "upload image")
		}
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		s.discardMedia(ctx, item.VideoURL, item.ImageURL)
		return nil, fmt.Errorf("create item: %w", err)
	}

	if err := s.restRepo.AddItemRef(ctx, restaurantID, item.ID); err != nil {
		s.log.Error("link item to restaurant", "item_id", item.ID, "restaurant_id", restaurantID, "error", err)
	}

	resp := dto.NewItemResponse(item)
	return &resp, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	cacheKey := itemCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ItemResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	resp := dto.NewItemResponse(item)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, itemCacheTTL)
		}
	}

	return &resp, nil
}

// List returns every item, or the items of restaurantID when it is set.
func (s *CatalogService) List(ctx context.Context, restaurantID uuid.UUID) ([]dto.ItemResponse, error) {
	items, err := s.itemRepo.List(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewItemResponse(&items[i]))
	}
	return out, nil
}

func (s *CatalogService) Update(ctx context.Context, restaurantID, id uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := s.ownedItem(ctx, restaurantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrNonPositivePrice
		}
		item.Price = *req.Price
	}
	if req.Category != nil {
		item.Category = *req.Category
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.invalidateCache(ctx, id)
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := dto.NewItemResponse(item)
	return &resp, nil
}

// Delete removes an item owned by restaurantID and pulls it from the restaurant's item set.
func (s *CatalogService) Delete(ctx context.Context, restaurantID, id uuid.UUID) error {
	item, err := s.ownedItem(ctx, restaurantID, id)
	if err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	s.invalidateCache(ctx, id)

	if err := s.restRepo.RemoveItemRef(ctx, item.RestaurantID, id); err != nil {
		s.log.Error("unlink item from restaurant", "item_id", id, "restaurant_id", item.RestaurantID, "error", err)
	}
	s.discardMedia(ctx, item.VideoURL, item.ImageURL)
	return nil
}

// ownedItem reports items of other restaurants as not found.
func (s *CatalogService) ownedItem(ctx context.Context, restaurantID, id uuid.UUID) (*model.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil || item.RestaurantID != restaurantID {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *CatalogService) discardMedia(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.media.Remove(ctx, url); err != nil {
			s.log.Warn("remove media", "url", url, "error", err)
		}
	}
}

func (s *CatalogService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, itemCacheKey(id))
	}
}

func itemCacheKey(id uuid.UUID) string { return "item:" + id.String() }
