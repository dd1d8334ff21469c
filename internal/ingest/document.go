// Package ingest loads workspace documents.
//
// Two JSON layouts are accepted. The nested layout lists materials and
// products inside each category:
//
//	{"categories": [{"name": "A",
//	                 "materials": [{"name": "coin", "price": 10, "count": 5}],
//	                 "products":  [{"name": "jackpot", "price": 1000}]}]}
//
// The flat layout keys materials and products by category id:
//
//	{"categories": [{"id": "c1", "name": "A"}],
//	 "materials": {"c1": [...]}, "products": {"c1": [...]}}
//
// Every entry goes through the workspace add operations, so a document is
// subject to the same validation as interactive input. IDs are regenerated.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/gjson"

	"gacha-lab/internal/idgen"
	"gacha-lab/internal/workspace"
)

// ErrInvalidDocument is returned for input that is not a JSON object with a
// categories array.
var ErrInvalidDocument = errors.New("invalid workspace document")

// Parse builds a workspace from a JSON document.
// IDs are derived from entry positions, so the same document always yields
// the same IDs.
func Parse(data []byte) (*workspace.Workspace, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}
	categories := doc.Get("categories")
	if !categories.IsArray() {
		return nil, fmt.Errorf("%w: categories must be an array", ErrInvalidDocument)
	}

	seq := 0
	ws := workspace.New(workspace.WithIDGenerator(func() string {
		seq++
		return idgen.Derive("doc", strconv.Itoa(seq))
	}))

	flatMaterials := doc.Get("materials")
	flatProducts := doc.Get("products")

	var err error
	idx := 0
	categories.ForEach(func(_, v gjson.Result) bool {
		c, addErr := ws.AddCategory(v.Get("name").String())
		if addErr != nil {
			err = fmt.Errorf("category %d: %w", idx, addErr)
			return false
		}
		idx++

		materials, products := v.Get("materials"), v.Get("products")
		if docID := v.Get("id").String(); docID != "" {
			if flatMaterials.IsObject() {
				materials = flatMaterials.Get(gjson.Escape(docID))
			}
			if flatProducts.IsObject() {
				products = flatProducts.Get(gjson.Escape(docID))
			}
		}

		if addErr := addMaterials(ws, c.ID, materials); addErr != nil {
			err = fmt.Errorf("category %q: %w", c.Name, addErr)
			return false
		}
		if addErr := addProducts(ws, c.ID, products); addErr != nil {
			err = fmt.Errorf("category %q: %w", c.Name, addErr)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return ws, nil
}

// ParseFile reads and parses a workspace document from disk.
func ParseFile(path string) (*workspace.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace document: %w", err)
	}
	ws, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ws, nil
}

func addMaterials(ws *workspace.Workspace, categoryID string, list gjson.Result) error {
	if !list.Exists() || list.Type == gjson.Null {
		return nil
	}
	if !list.IsArray() {
		return fmt.Errorf("%w: materials must be an array", ErrInvalidDocument)
	}

	var err error
	idx := 0
	list.ForEach(func(_, m gjson.Result) bool {
		_, err = ws.AddMaterial(categoryID, m.Get("name").String(), m.Get("price").Float(), int(m.Get("count").Int()))
		if err != nil {
			err = fmt.Errorf("material %d: %w", idx, err)
			return false
		}
		idx++
		return true
	})
	return err
}

func addProducts(ws *workspace.Workspace, categoryID string, list gjson.Result) error {
	if !list.Exists() || list.Type == gjson.Null {
		return nil
	}
	if !list.IsArray() {
		return fmt.Errorf("%w: products must be an array", ErrInvalidDocument)
	}

	var err error
	idx := 0
	list.ForEach(func(_, p gjson.Result) bool {
		_, err = ws.AddProduct(categoryID, p.Get("name").String(), p.Get("price").Float())
		if err != nil {
			err = fmt.Errorf("product %d: %w", idx, err)
			return false
		}
		idx++
		return true
	})
	return err
}
