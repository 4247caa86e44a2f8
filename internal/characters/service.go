package characters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pwvale/panel-backend/pkg/db/models"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

// Service exposes character reads for players and the teleport admin
// operation.
type Service interface {
	ListByAccount(ctx context.Context, accountID uint64) ([]CharacterDTO, error)
	GetCharacter(ctx context.Context, id uint64) (*CharacterDTO, error)
	Teleport(ctx context.Context, input TeleportInput) (*CharacterDTO, error)
	Inventory(ctx context.Context, characterID uint64) ([]InventoryItemDTO, error)
}

// TeleportInput repositions a character.
type TeleportInput struct {
	CharacterID uint64
	X, Y, Z     float64
	WorldTag    int
}

// CharacterDTO is the read model for a character.
type CharacterDTO struct {
	ID         uint64    `json:"id"`
	AccountID  uint64    `json:"account_id"`
	Name       string    `json:"name"`
	Class      int       `json:"class"`
	Level      int       `json:"level"`
	Gender     int       `json:"gender"`
	Reputation int       `json:"reputation"`
	PosX       float64   `json:"pos_x"`
	PosY       float64   `json:"pos_y"`
	PosZ       float64   `json:"pos_z"`
	WorldTag   int       `json:"world_tag"`
	CreatedAt  time.Time `json:"created_at"`
}

// InventoryItemDTO is one bag stack.
type InventoryItemDTO struct {
	ID     uint64 `json:"id"`
	ItemID int    `json:"item_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Slot   int    `json:"slot"`
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService wires the character service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("character repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logger: logg}, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uint64) ([]CharacterDTO, error) {
	if accountID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	rows, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing characters")
	}
	dtos := make([]CharacterDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toCharacterDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) GetCharacter(ctx context.Context, id uint64) (*CharacterDTO, error) {
	character, err := s.findCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toCharacterDTO(character)
	return &dto, nil
}

// Teleport rewrites the character's stored position. The game picks the new
// coordinates up on next map load, so no server round-trip is needed.
func (s *service) Teleport(ctx context.Context, input TeleportInput) (*CharacterDTO, error) {
	character, err := s.findCharacter(ctx, input.CharacterID)
	if err != nil {
		return nil, err
	}
	if input.WorldTag <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "world tag must be positive")
	}

	if err := s.repo.UpdatePosition(ctx, character.ID, input.X, input.Y, input.Z, input.WorldTag); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "character not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "teleporting character")
	}

	character.PosX, character.PosY, character.PosZ = input.X, input.Y, input.Z
	character.WorldTag = input.WorldTag

	s.logger.Info(s.logger.WithField(ctx, "character_id", character.ID), "character teleported")
	dto := toCharacterDTO(character)
	return &dto, nil
}

func (s *service) Inventory(ctx context.Context, characterID uint64) ([]InventoryItemDTO, error) {
	if _, err := s.findCharacter(ctx, characterID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListInventory(ctx, characterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing inventory")
	}
	dtos := make([]InventoryItemDTO, 0, len(rows))
	for _, item := range rows {
		dtos = append(dtos, InventoryItemDTO{
			ID:     item.ID,
			ItemID: item.ItemID,
			Name:   item.Name,
			Count:  item.Count,
			Slot:   item.Slot,
		})
	}
	return dtos, nil
}

func (s *service) findCharacter(ctx context.Context, id uint64) (*models.Character, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	character, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "character not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading character")
	}
	return character, nil
}

func toCharacterDTO(c *models.Character) CharacterDTO {
	return CharacterDTO{
		ID:         c.ID,
		AccountID:  c.AccountID,
		Name:       c.Name,
		Class:      c.Class,
		Level:      c.Level,
		Gender:     c.Gender,
		Reputation: c.Reputation,
		PosX:       c.PosX,
		PosY:       c.PosY,
		PosZ:       c.PosZ,
		WorldTag:   c.WorldTag,
		CreatedAt:  c.CreatedAt,
	}
}
