package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/geo"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// directoryEntry is one office row in a seed document.
type directoryEntry struct {
	OfficeID    string `json:"office_id"`
	Chamber     string `json:"chamber"`
	State       string `json:"state"`
	District    int    `json:"district"`
	DisplayName string `json:"display_name"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

// LoadDirectoryJSON decodes and validates a seed document: a JSON array
// of office entries.
func LoadDirectoryJSON(r io.Reader) ([]domain.Office, error) {
	var entries []directoryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode office directory: %w", err)
	}

	offices := make([]domain.Office, 0, len(entries))
	for i, e := range entries {
		if e.OfficeID == "" {
			return nil, fmt.Errorf("office directory entry %d: missing office_id", i)
		}
		chamber := domain.Chamber(e.Chamber)
		if chamber != domain.ChamberHouse && chamber != domain.ChamberSenate {
			return nil, fmt.Errorf("office directory entry %q: unknown chamber %q", e.OfficeID, e.Chamber)
		}
		if !geo.ValidStateCode(e.State) {
			return nil, fmt.Errorf("office directory entry %q: unknown state %q", e.OfficeID, e.State)
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		name := e.DisplayName
		if name == "" {
			name = defaultDisplayName(chamber, e.State, e.District)
		}
		offices = append(offices, domain.Office{
			OfficeID:    e.OfficeID,
			Chamber:     chamber,
			State:       e.State,
			District:    e.District,
			DisplayName: name,
			Active:      active,
		})
	}
	return offices, nil
}

// defaultDisplayName labels seed entries that carry no display name, e.g.
// "California District 12", "Guam At-Large", "Vermont Senator".
func defaultDisplayName(chamber domain.Chamber, state string, district int) string {
	full := geo.StateName(state)
	if chamber == domain.ChamberSenate {
		return full + " Senator"
	}
	if district == 0 {
		return full + " At-Large"
	}
	return fmt.Sprintf("%s District %d", full, district)
}

// SeedDirectory upserts the given offices into the directory.
func SeedDirectory(ctx context.Context, db *gorm.DB, offices []domain.Office) error {
	return repo.UpsertOffices(ctx, db, offices)
}

// SeedDirectoryFile loads a seed document from disk and upserts it,
// returning how many offices it carried.
func SeedDirectoryFile(ctx context.Context, db *gorm.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open office directory: %w", err)
	}
	defer f.Close()

	offices, err := LoadDirectoryJSON(f)
	if err != nil {
		return 0, err
	}
	if err := SeedDirectory(ctx, db, offices); err != nil {
		return 0, err
	}
	return len(offices), nil
}
