package service

import (
	"context"
	"strings"

	"tresesenta/internal/database"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
)

type CityDetail struct {
	models.City
	ActiveUsers int64 `json:"active_users"`
	PinsCount   int64 `json:"pins_count"`
}

// PlaceService serves the category and city reference data.
type PlaceService struct {
	places *repository.PlaceRepository
}

func NewPlaceService(tm *database.TxManager) *PlaceService {
	return &PlaceService{places: repository.NewPlaceRepository(tm.DB())}
}

func (s *PlaceService) Categories(ctx context.Context) ([]models.Category, error) {
	list, err := s.places.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, nil
}

func (s *PlaceService) Cities(ctx context.Context, state string) ([]models.City, error) {
	list, err := s.places.ListCities(ctx, strings.TrimSpace(state))
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, nil
}

func (s *PlaceService) City(ctx context.Context, id uint) (*CityDetail, error) {
	c, err := s.places.GetCity(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeCityNotFound, "city not found")
	}
	out := &CityDetail{City: *c}
	if out.ActiveUsers, out.PinsCount, err = s.places.CityActivity(ctx, id); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return out, nil
}
