package store

import (
	"context"

	"cloudbudget/internal/errors"
)

// SharedStructure is a published sandbox structure.
type SharedStructure struct {
	UserID    string         `json:"user_id"`
	SandboxID string         `json:"sandbox_id"`
	Struct    map[string]any `json:"struct"`
	IsPublic  bool           `json:"is_public"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// SharedPage is one page of the public share listing.
type SharedPage struct {
	Structures []SharedStructure `json:"structures"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	HasNext    bool              `json:"has_next"`
}

func sharedFromItem(item Item) SharedStructure {
	structData, _ := item.Doc["struct"].(map[string]any)
	return SharedStructure{
		UserID:    trimPrefix(item.PK, "user#"),
		SandboxID: trimPrefix(item.SK, "sandbox#"),
		Struct:    structData,
		IsPublic:  truthy(item.Doc["is_public"]),
		CreatedAt: stringFromAny(item.Doc["created_at"]),
		UpdatedAt: stringFromAny(item.Doc["updated_at"]),
	}
}

// ListPublicSandboxes pages through every published sandbox structure.
func (s *Store) ListPublicSandboxes(ctx context.Context, page, pageSize int) (SharedPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	items, err := s.ScanSKPrefix(ctx, "sandbox#")
	if err != nil {
		return SharedPage{}, err
	}

	public := make([]SharedStructure, 0, len(items))
	for _, item := range items {
		if !truthy(item.Doc["is_public"]) {
			continue
		}
		public = append(public, sharedFromItem(item))
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(public) {
		start = len(public)
	}
	if end > len(public) {
		end = len(public)
	}

	return SharedPage{
		Structures: public[start:end],
		TotalCount: len(public),
		Page:       page,
		PageSize:   pageSize,
		HasNext:    end < len(public),
	}, nil
}

// GetSandbox finds a sandbox by id regardless of owner. Unpublished
// sandboxes are only visible to their owner.
func (s *Store) GetSandbox(ctx context.Context, sandboxID string) (SharedStructure, error) {
	items, err := s.ScanSKPrefix(ctx, sandboxSK(sandboxID))
	if err != nil {
		return SharedStructure{}, err
	}
	for _, item := range items {
		if item.SK == sandboxSK(sandboxID) {
			return sharedFromItem(item), nil
		}
	}
	return SharedStructure{}, errors.NotFound("sandbox", sandboxID)
}

// UpdateSandboxStruct replaces the structure of a player's own sandbox.
func (s *Store) UpdateSandboxStruct(ctx context.Context, userID, sandboxID string, structData map[string]any) error {
	return s.Update(ctx, userPK(userID), sandboxSK(sandboxID), map[string]any{
		"struct": structData,
	})
}

// PublishSandbox toggles public visibility of a player's own sandbox.
func (s *Store) PublishSandbox(ctx context.Context, userID, sandboxID string, public bool) error {
	return s.Update(ctx, userPK(userID), sandboxSK(sandboxID), map[string]any{
		"is_public": public,
	})
}
