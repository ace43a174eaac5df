// Package catalog holds the static price table keyed by platform and account tier.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"ms-storefront/internal/models"
)

//go:embed catalog.json
var defaultDocument []byte

// Document is the on-disk / over-the-wire catalog format: game -> platform -> tier -> price.
type Document struct {
	Games map[string]GameEntry `json:"games"`
}

type GameEntry struct {
	Name      string                   `json:"name"`
	Platforms map[string]PlatformEntry `json:"platforms"`
}

type PlatformEntry struct {
	Name   string         `json:"name"`
	Prices map[string]int `json:"prices"`
}

// Catalog is the price table for the single game this storefront sells.
// It is never mutated after loading.
type Catalog struct {
	gameKey  string
	gameName string
	entries  map[models.Platform]PlatformEntry
}

// Entry is one platform row as exposed by the public catalog endpoint.
type Entry struct {
	Platform models.Platform `json:"platform"`
	Name     string          `json:"name"`
	Prices   map[string]int  `json:"prices"`
}

// Default returns the embedded catalog for the given game key.
func Default(gameKey string) (*Catalog, error) {
	return Load(bytes.NewReader(defaultDocument), gameKey)
}

func Load(r io.Reader, gameKey string) (*Catalog, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return FromDocument(doc, gameKey)
}

func LoadFile(path, gameKey string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, gameKey)
}

// Fetch downloads the static catalog document once.
func Fetch(ctx context.Context, client *http.Client, url, gameKey string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog fetch failed: status %d", resp.StatusCode)
	}
	return Load(resp.Body, gameKey)
}

func FromDocument(doc Document, gameKey string) (*Catalog, error) {
	game, ok := doc.Games[gameKey]
	if !ok {
		return nil, fmt.Errorf("game %q not found in catalog", gameKey)
	}

	entries := make(map[models.Platform]PlatformEntry, len(game.Platforms))
	for platform, entry := range game.Platforms {
		prices := make(map[string]int, len(entry.Prices))
		for tier, price := range entry.Prices {
			if price < 0 {
				return nil, fmt.Errorf("negative price for %s/%s", platform, tier)
			}
			prices[tier] = price
		}
		entries[models.Platform(platform)] = PlatformEntry{Name: entry.Name, Prices: prices}
	}

	return &Catalog{gameKey: gameKey, gameName: game.Name, entries: entries}, nil
}

// Price returns the configured price, or 0 when the pair is not in the catalog.
// A zero price means "invalid selection", never "free".
func (c *Catalog) Price(platform models.Platform, accountType models.AccountType) int {
	entry, ok := c.entries[platform]
	if !ok {
		return 0
	}
	return entry.Prices[string(accountType)]
}

func (c *Catalog) GameName() string {
	return c.gameName
}

func (c *Catalog) GameKey() string {
	return c.gameKey
}

func (c *Catalog) PlatformName(platform models.Platform) string {
	if entry, ok := c.entries[platform]; ok && entry.Name != "" {
		return entry.Name
	}
	return string(platform)
}

func (c *Catalog) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, p := range c.Platforms() {
		entry := c.entries[p]
		prices := make(map[string]int, len(entry.Prices))
		for tier, price := range entry.Prices {
			prices[tier] = price
		}
		out = append(out, Entry{Platform: p, Name: entry.Name, Prices: prices})
	}
	return out
}
