package world

import (
	"sort"
	"strings"
	"sync"
)

// BlockAir is the empty cell value.
const BlockAir = "air"

// placeableBlocks is the fixed palette of block ids an agent may be given.
var placeableBlocks = []string{
	"andesite", "birch_log", "birch_planks", "black_wool", "blue_wool",
	"bookshelf", "brick_block", "clay", "coal_ore", "cobblestone",
	"copper_ore", "crafting_table", "diorite", "dirt", "glass", "glowstone",
	"granite", "grass_block", "gravel", "green_wool", "ice", "iron_ore",
	"lantern", "mossy_cobblestone", "oak_log", "oak_planks", "obsidian",
	"red_wool", "sand", "sandstone", "smooth_stone", "snow_block",
	"spruce_log", "spruce_planks", "stone", "stone_bricks", "terracotta",
	"white_wool", "yellow_wool",
}

// BlockEntry is one catalog row served to the client script.
type BlockEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var (
	placeableSet  map[string]struct{}
	catalogOnce   sync.Once
	cachedCatalog []BlockEntry
)

func init() {
	placeableSet = make(map[string]struct{}, len(placeableBlocks))
	for _, id := range placeableBlocks {
		placeableSet[id] = struct{}{}
	}
}

// ValidBlock reports whether id names a placeable block.
func ValidBlock(id string) bool {
	_, ok := placeableSet[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// BlockCatalog returns the sorted catalog of placeable blocks with
// humanized display names. Computed once and cached.
func BlockCatalog() []BlockEntry {
	catalogOnce.Do(func() {
		list := make([]BlockEntry, 0, len(placeableBlocks))
		for _, id := range placeableBlocks {
			list = append(list, BlockEntry{ID: id, Name: humanizeBlockName(id)})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		cachedCatalog = list
	})
	return cachedCatalog
}

func humanizeBlockName(id string) string {
	parts := strings.Split(id, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToUpper(part[:1]))
		if len(part) > 1 {
			b.WriteString(part[1:])
		}
	}
	return b.String()
}

// BlockAt returns the block id occupying a cell, or BlockAir. Loop only.
func (w *World) BlockAt(c Cell) string {
	if id, ok := w.blocks[c]; ok {
		return id
	}
	return BlockAir
}

// cellEmpty reports whether a cell can receive a placement. Loop only.
func (w *World) cellEmpty(c Cell) bool {
	_, occupied := w.blocks[c]
	return !occupied
}

// SetBlock writes a cell. Placing air clears it. Loop only.
func (w *World) SetBlock(c Cell, id string) {
	if id == "" || id == BlockAir {
		delete(w.blocks, c)
		return
	}
	w.blocks[c] = id
}
