package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/world/logic/crafting"
	"autocraft.ai/internal/sim/world/logic/slots"
)

//go:embed recipes.schema.json
var recipesSchemaJSON string

type Catalogs struct {
	Blocks  BlockCatalog
	Items   ItemCatalog
	Recipes RecipeCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Container int    `json:"container_slots,omitempty"`
	DropsItem string `json:"drops_item,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "BLOCK","TOOL","MATERIAL","FOOD","LIQUID_CONTAINER"
	PlaceAs  string `json:"place_as,omitempty"`
	MaxStack int    `json:"max_stack,omitempty"`
}

type RecipeCatalog struct {
	Ordered []RecipeDef
	ByID    map[string]RecipeDef
	Digest  string

	byResult map[string][]crafting.Recipe
}

type RecipeDef struct {
	RecipeID string               `json:"recipe_id"`
	Kind     string               `json:"kind"`
	Shape    []string             `json:"shape,omitempty"`
	Key      map[string]ItemCount `json:"key,omitempty"`
	Choices  [][]string           `json:"choices,omitempty"`
	Result   ItemCount            `json:"result"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count,omitempty"`
}

func (c ItemCount) Stack() protocol.ItemStack {
	n := c.Count
	if n <= 0 {
		n = 1
	}
	return protocol.ItemStack{Item: c.Item, Count: n}
}

// Recipe converts the JSON definition into its matchable form.
func (d RecipeDef) Recipe() crafting.Recipe {
	r := crafting.Recipe{
		ID:     d.RecipeID,
		Kind:   crafting.Kind(d.Kind),
		Result: d.Result.Stack(),
	}
	switch r.Kind {
	case crafting.KindShaped:
		r.Shape = append([]string(nil), d.Shape...)
		r.Key = make(map[rune]protocol.ItemStack, len(d.Key))
		for k, v := range d.Key {
			for _, c := range k {
				r.Key[c] = v.Stack()
				break
			}
		}
	case crafting.KindShapeless:
		r.Choices = make([][]string, 0, len(d.Choices))
		for _, g := range d.Choices {
			r.Choices = append(r.Choices, append([]string(nil), g...))
		}
	}
	return r
}

// ForResult returns every recipe whose result is item, in file order.
func (c *RecipeCatalog) ForResult(item string) []crafting.Recipe {
	if c == nil {
		return nil
	}
	return c.byResult[item]
}

// MaxStack returns the stack limit of item, or fallback when items.json does
// not set one (fallback <= 0 means slots.DefaultMaxStack).
func (c *ItemCatalog) MaxStack(item string, fallback int) int {
	if c != nil {
		if d, ok := c.Defs[item]; ok && d.MaxStack > 0 {
			return d.MaxStack
		}
	}
	if fallback > 0 {
		return fallback
	}
	return slots.DefaultMaxStack
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := checkRecipeItems(&c.Recipes, &c.Items); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.MaxStack < 0 {
			return fmt.Errorf("items.json: %s: negative max_stack", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validateRecipesSchema(raw); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.Ordered = defs
	out.ByID = map[string]RecipeDef{}
	out.byResult = map[string][]crafting.Recipe{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %s", r.RecipeID)
		}
		out.ByID[r.RecipeID] = r
		out.byResult[r.Result.Item] = append(out.byResult[r.Result.Item], r.Recipe())
	}
	return nil
}

func validateRecipesSchema(raw []byte) error {
	schema, err := jsonschema.CompileString("recipes.schema.json", recipesSchemaJSON)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// checkRecipeItems rejects recipes that name items missing from items.json.
func checkRecipeItems(recipes *RecipeCatalog, items *ItemCatalog) error {
	known := func(id string) bool {
		_, ok := items.Defs[id]
		return ok
	}
	for _, r := range recipes.Ordered {
		if !known(r.Result.Item) {
			return fmt.Errorf("recipes.json: %s: unknown result item %s", r.RecipeID, r.Result.Item)
		}
		for k, ing := range r.Key {
			if !known(ing.Item) {
				return fmt.Errorf("recipes.json: %s: key %q: unknown item %s", r.RecipeID, k, ing.Item)
			}
		}
		for _, g := range r.Choices {
			for _, id := range g {
				if !known(id) {
					return fmt.Errorf("recipes.json: %s: unknown choice item %s", r.RecipeID, id)
				}
			}
		}
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
