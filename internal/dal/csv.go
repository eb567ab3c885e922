package dal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

var ErrMissingColumn = errors.New("csv: missing column")

// ParseCatalogCSV reads a catalog export with Name, Mega (Y/N) and Tier
// columns. Header names are matched case-insensitively.
func ParseCatalogCSV(r io.Reader) ([]models.Item, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, want := range []string{"name", "tier"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, want)
		}
	}
	megaCol, hasMega := cols["mega"]

	var items []models.Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}

		name := strings.TrimSpace(rec[cols["name"]])
		if name == "" {
			continue
		}
		tier, err := strconv.Atoi(strings.TrimSpace(rec[cols["tier"]]))
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: tier %q: %w", line, rec[cols["tier"]], err)
		}

		item := models.Item{Name: name, Tier: tier}
		if hasMega {
			item.IsMega = strings.EqualFold(strings.TrimSpace(rec[megaCol]), "Y")
		}
		items = append(items, item)
	}
	return items, nil
}

// ImportCatalogCSV loads the CSV at path into the store and returns how many
// items were written.
func ImportCatalogCSV(store DraftDAL, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	items, err := ParseCatalogCSV(f)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := store.AddItem(it); err != nil {
			return 0, fmt.Errorf("import %s: %w", it.Name, err)
		}
	}
	logger.Info("Catalog imported", "path", path, "items", len(items))
	return len(items), nil
}
