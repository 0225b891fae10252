package app

import (
	"fmt"
	"reflect"
	"sort"

	"branchpos/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

var schemaTypes = map[string]any{
	"login":        LoginRequest{},
	"sale":         CreateSaleRequest{},
	"sale-update":  UpdateSaleRequest{},
	"pos-checkout": POSCheckoutRequest{},
	"purchase":     PurchaseRequest{},
	"branch":       BranchRequest{},
	"category":     CategoryRequest{},
	"product":      ProductRequest{},
	"supplier":     SupplierRequest{},
	"expense":      ExpenseRequest{},
	"user":         UserRequest{},
}

// SchemaNames returns the names Schema accepts, sorted.
func SchemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for n := range schemaTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

const decimalPattern = `^-?[0-9]+(\.[0-9]+)?$`

// mapDecimal describes money and quantity fields, which accept a JSON number or a
// numeric string.
func mapDecimal(t reflect.Type) *jsonschema.Schema {
	switch t {
	case decimalType:
		return &jsonschema.Schema{OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Pattern: decimalPattern},
		}}
	case nullDecimalType:
		return &jsonschema.Schema{OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Pattern: decimalPattern},
			{Type: "null"},
		}}
	}
	return nil
}

func (s *appService) Schema(name string) (*jsonschema.Schema, error) {
	return reflectSchema(name)
}

func reflectSchema(name string) (*jsonschema.Schema, error) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, fmt.Errorf("schema %q: %w", name, core.ErrNotFound)
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper:                    mapDecimal,
	}
	schema := reflector.Reflect(v)
	schema.Title = name
	return schema, nil
}
