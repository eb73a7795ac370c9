package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/aristo-backend/internal/repos"
	"github.com/slotter-org/aristo-backend/internal/types"
)

type seedResource struct {
	Name string             `json:"name"`
	Type types.ResourceType `json:"type"`
	URL  string             `json:"url"`
	Size string             `json:"size,omitempty"`
}

// SyncStarterResources makes sure every entry of the JSON file at path is in ownerID's
// library. Entries are matched on URL; nothing is deleted.
func SyncStarterResources(
	ctx context.Context,
	db *gorm.DB,
	resourceRepo repos.ResourceRepo,
	ownerID uuid.UUID,
	path string,
) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed reading library seed file: %w", err)
	}
	var fileResources []seedResource
	if err := json.Unmarshal(data, &fileResources); err != nil {
		return 0, fmt.Errorf("failed unmarshaling library seed: %w", err)
	}

	created := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := resourceRepo.ListByUser(ctx, tx, ownerID)
		if err != nil {
			return fmt.Errorf("failed fetching existing resources: %w", err)
		}
		toCreate := missingResources(fileResources, existing)
		base := time.Now().UnixMilli()
		for i, fr := range toCreate {
			res := types.Resource{
				ID:         uuid.NewString(),
				Name:       fr.Name,
				Type:       fr.Type,
				URL:        fr.URL,
				Size:       fr.Size,
				UploadedAt: base + int64(i),
				UserID:     ownerID,
			}
			if err := resourceRepo.Insert(ctx, tx, res); err != nil {
				return fmt.Errorf("failed creating seeded resource %q: %w", fr.Name, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func missingResources(fileResources []seedResource, existing []types.Resource) []seedResource {
	existingURLs := make(map[string]bool, len(existing))
	for _, r := range existing {
		existingURLs[r.URL] = true
	}
	var out []seedResource
	for _, fr := range fileResources {
		if fr.URL == "" || existingURLs[fr.URL] {
			continue
		}
		if fr.Type == "" {
			fr.Type = types.ResourceTypeLink
		}
		if fr.Name == "" {
			fr.Name = fr.URL
		}
		existingURLs[fr.URL] = true
		out = append(out, fr)
	}
	return out
}
