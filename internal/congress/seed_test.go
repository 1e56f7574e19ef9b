package congress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

const seedDoc = `[
  {"office_id": "H-CA-12", "chamber": "house", "state": "CA", "district": 12, "display_name": "Rep. A"},
  {"office_id": "S-CA-1", "chamber": "senate", "state": "CA", "display_name": "Sen. B"},
  {"office_id": "H-TX-18", "chamber": "house", "state": "TX", "district": 18, "display_name": "Vacant", "active": false}
]`

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Office{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestLoadDirectoryJSON_ValidDocument(t *testing.T) {
	offices, err := LoadDirectoryJSON(strings.NewReader(seedDoc))
	if err != nil {
		t.Fatalf("LoadDirectoryJSON: %v", err)
	}
	if len(offices) != 3 {
		t.Fatalf("expected 3 offices, got %d", len(offices))
	}
	if offices[0].OfficeID != "H-CA-12" || offices[0].Chamber != domain.ChamberHouse || offices[0].District != 12 {
		t.Fatalf("unexpected first office: %+v", offices[0])
	}
	// Active defaults to true and honors an explicit false.
	if !offices[0].Active || !offices[1].Active || offices[2].Active {
		t.Fatalf("active flags wrong: %v %v %v", offices[0].Active, offices[1].Active, offices[2].Active)
	}
}

func TestLoadDirectoryJSON_DefaultDisplayNames(t *testing.T) {
	doc := `[
	  {"office_id": "H-CA-12", "chamber": "house", "state": "CA", "district": 12},
	  {"office_id": "H-GU-0", "chamber": "house", "state": "GU"},
	  {"office_id": "S-VT-1", "chamber": "senate", "state": "VT"},
	  {"office_id": "H-DC-0", "chamber": "house", "state": "DC"},
	  {"office_id": "S-NY-2", "chamber": "senate", "state": "NY", "display_name": "Sen. C"}
	]`
	offices, err := LoadDirectoryJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadDirectoryJSON: %v", err)
	}
	want := []string{
		"California District 12",
		"Guam At-Large",
		"Vermont Senator",
		"District of Columbia At-Large",
		"Sen. C", // explicit names are never overwritten
	}
	for i, w := range want {
		if offices[i].DisplayName != w {
			t.Fatalf("office %s display name = %q, want %q",
				offices[i].OfficeID, offices[i].DisplayName, w)
		}
	}
}

func TestLoadDirectoryJSON_Validation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `{"office_id":`, "decode office directory"},
		{"missing office id", `[{"chamber": "house", "state": "CA"}]`, "missing office_id"},
		{"unknown chamber", `[{"office_id": "X-1", "chamber": "parliament", "state": "CA"}]`, "unknown chamber"},
		{"unknown state", `[{"office_id": "H-ZZ-1", "chamber": "house", "state": "ZZ"}]`, "unknown state"},
	}
	for _, c := range cases {
		_, err := LoadDirectoryJSON(strings.NewReader(c.doc))
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: err = %v; want containing %q", c.name, err, c.want)
		}
	}
}

func TestSeedDirectoryFile_LoadsAndUpserts(t *testing.T) {
	db := newSeedDB(t)
	path := filepath.Join(t.TempDir(), "offices.json")
	if err := os.WriteFile(path, []byte(seedDoc), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	n, err := SeedDirectoryFile(context.Background(), db, path)
	if err != nil {
		t.Fatalf("SeedDirectoryFile: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 seeded offices, got %d", n)
	}

	// Re-seeding is idempotent.
	if _, err := SeedDirectoryFile(context.Background(), db, path); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	total, err := repo.CountOffices(context.Background(), db)
	if err != nil {
		t.Fatalf("CountOffices: %v", err)
	}
	if total != 3 {
		t.Fatalf("re-seed duplicated rows: %d", total)
	}

	if _, err := SeedDirectoryFile(context.Background(), db, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
