package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ms-storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PricesMatchTable(t *testing.T) {
	c, err := Default("fc25")
	require.NoError(t, err)

	expected := map[models.Platform]map[models.AccountType]int{
		models.PlatformPS4:  {models.AccountPrimary: 50, models.AccountSecondary: 30, models.AccountFull: 80},
		models.PlatformPS5:  {models.AccountPrimary: 60, models.AccountSecondary: 40, models.AccountFull: 100},
		models.PlatformXbox: {models.AccountPrimary: 55, models.AccountSecondary: 35, models.AccountFull: 90},
		models.PlatformPC:   {models.AccountPrimary: 45, models.AccountSecondary: 25, models.AccountFull: 70},
	}

	for platform, tiers := range expected {
		for tier, price := range tiers {
			assert.Equal(t, price, c.Price(platform, tier), "%s/%s", platform, tier)
		}
	}
	assert.Equal(t, "EA Sports FC 25", c.GameName())
	assert.Equal(t, "PlayStation 5", c.PlatformName(models.PlatformPS5))
}

func TestPrice_UnmappedPairReturnsZero(t *testing.T) {
	c, err := Default("fc25")
	require.NoError(t, err)

	assert.Equal(t, 0, c.Price("switch", models.AccountFull))
	assert.Equal(t, 0, c.Price(models.PlatformPS5, "lifetime"))
	assert.Equal(t, 0, c.Price("", ""))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader(`{"games":{}}`), "fc25")
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`not json`), "fc25")
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`{"games":{"fc25":{"platforms":{"pc":{"prices":{"full":-1}}}}}}`), "fc25")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"games":{"fc26":{"name":"EA Sports FC 26","platforms":{"pc":{"name":"PC","prices":{"full":120}}}}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadFile(path, "fc26")
	require.NoError(t, err)
	assert.Equal(t, 120, c.Price(models.PlatformPC, models.AccountFull))
	assert.Equal(t, []models.Platform{models.PlatformPC}, c.Platforms())
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(defaultDocument)
	}))
	defer srv.Close()

	c, err := Fetch(context.Background(), srv.Client(), srv.URL, "fc25")
	require.NoError(t, err)
	assert.Equal(t, 100, c.Price(models.PlatformPS5, models.AccountFull))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()

	_, err = Fetch(context.Background(), failing.Client(), failing.URL, "fc25")
	assert.Error(t, err)
}

func TestEntries_AreCopies(t *testing.T) {
	c, err := Default("fc25")
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, models.PlatformPC, entries[0].Platform)

	entries[0].Prices["full"] = 1
	assert.Equal(t, 70, c.Price(models.PlatformPC, models.AccountFull))
}
