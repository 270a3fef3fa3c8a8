package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

//go:embed openapi.yaml
var openAPIDocument []byte

const (
	schemaQueryRequest      = "QueryRequest"
	schemaBatchQueryRequest = "BatchQueryRequest"
)

type apiSchema struct {
	doc *openapi3.T
}

func loadAPISchema() (*apiSchema, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	for _, name := range []string{schemaQueryRequest, schemaBatchQueryRequest} {
		if ref := doc.Components.Schemas[name]; ref == nil || ref.Value == nil {
			return nil, fmt.Errorf("openapi document is missing schema %s", name)
		}
	}
	return &apiSchema{doc: doc}, nil
}

// validate checks raw JSON against a component schema. Only shape is checked;
// empty questions are accepted.
func (s *apiSchema) validate(schema string, raw []byte) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	ref := s.doc.Components.Schemas[schema]
	if err := ref.Value.VisitJSON(value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request body", err)
	}
	return nil
}
