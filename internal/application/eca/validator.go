package eca

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// eventNamespace seeds the UUIDv5 fingerprints of inbound events
var eventNamespace = uuid.MustParse("5d1c7a8e-2f43-4b8e-9a61-0e9f3c2b7d14")

// ValidatedPayload is a payload that passed envelope and attribute
// validation. Line items are validated individually; an invalid item carries
// its error instead of failing the request.
type ValidatedPayload struct {
	Action         string
	OrganizationID uuid.UUID
	Handler        ActionHandler
	Attributes     attributeSchema
	// RawAttributes are the top-level attributes without items
	RawAttributes eca.Attributes
	Items         []LineItem
	EventUUID     uuid.UUID
	Raw           json.RawMessage

	fullAttributes eca.Attributes
}

// LineItem is one entry of attributes.items
type LineItem struct {
	Index int
	Value any
	Raw   eca.Attributes
	Err   *shared.DomainError
}

// InvalidItems returns the items that failed validation
func (p *ValidatedPayload) InvalidItems() []LineItem {
	var out []LineItem
	for _, it := range p.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Validator checks inbound payloads against the registered action schemas.
// It holds no per-request state and is safe for concurrent use.
type Validator struct {
	registry *Registry
	validate *validator.Validate
}

// NewValidator creates a Validator for the actions in registry
func NewValidator(registry *Registry) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{registry: registry, validate: v}
}

// Validate parses raw and returns the validated payload, or a
// VALIDATION_ERROR listing every violated field
func (v *Validator) Validate(raw []byte) (*ValidatedPayload, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope == nil {
		return nil, shared.NewValidationError([]shared.FieldViolation{{
			Field:   "",
			Rule:    "json",
			Message: "Payload must be a JSON object",
		}})
	}

	var violations []shared.FieldViolation
	add := func(field, rule, msg string) {
		violations = append(violations, shared.FieldViolation{Field: field, Rule: rule, Message: msg})
	}

	var action string
	handler, actionOK := ActionHandler(nil), false
	if rawAction, ok := present(envelope, "action"); !ok {
		add("action", "required", "This field is required")
	} else if err := json.Unmarshal(rawAction, &action); err != nil {
		add("action", "type", "Expected string")
	} else if handler, actionOK = v.registry.Get(action); !actionOK {
		add("action", "oneof", "Must be one of: "+strings.Join(v.registry.Actions(), " "))
	}

	var orgID uuid.UUID
	if rawOrg, ok := present(envelope, "organization_id"); !ok {
		add("organization_id", "required", "This field is required")
	} else {
		var s string
		if err := json.Unmarshal(rawOrg, &s); err != nil {
			add("organization_id", "type", "Expected string")
		} else if id, err := uuid.Parse(s); err != nil || id == uuid.Nil {
			add("organization_id", "uuid", "Invalid UUID format")
		} else {
			orgID = id
		}
	}

	var attrFields map[string]json.RawMessage
	rawAttrs, attrsOK := present(envelope, "attributes")
	if !attrsOK {
		add("attributes", "required", "This field is required")
	} else if err := json.Unmarshal(rawAttrs, &attrFields); err != nil || attrFields == nil {
		add("attributes", "type", "Expected object")
		attrsOK = false
	}

	if !actionOK || !attrsOK {
		return nil, shared.NewValidationError(violations)
	}

	schema := handler.NewAttributes()
	violations = append(violations, v.check(attrFields, schema, "attributes.")...)
	if len(violations) > 0 {
		return nil, shared.NewValidationError(violations)
	}

	var full eca.Attributes
	if err := json.Unmarshal(rawAttrs, &full); err != nil {
		return nil, shared.NewValidationError([]shared.FieldViolation{{Field: "attributes", Rule: "type", Message: "Expected object"}})
	}
	fingerprint, err := eventFingerprint(orgID, action, full)
	if err != nil {
		return nil, err
	}
	header := full.Clone()
	delete(header, "items")

	payload := &ValidatedPayload{
		Action:         action,
		OrganizationID: orgID,
		Handler:        handler,
		Attributes:     schema,
		RawAttributes:  header,
		EventUUID:      fingerprint,
		Raw:            json.RawMessage(raw),
		fullAttributes: full,
	}
	for i, rawItem := range schema.Common().Items {
		payload.Items = append(payload.Items, v.checkItem(handler, i, rawItem))
	}
	return payload, nil
}

func (v *Validator) checkItem(handler ActionHandler, index int, raw json.RawMessage) LineItem {
	prefix := fmt.Sprintf("attributes.items[%d].", index)
	item := LineItem{Index: index}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		item.Err = recordError(index, []shared.FieldViolation{{
			Field:   strings.TrimSuffix(prefix, "."),
			Rule:    "type",
			Message: "Expected object",
		}})
		return item
	}
	_ = json.Unmarshal(raw, &item.Raw)

	value := handler.NewItem()
	if violations := v.check(fields, value, prefix); len(violations) > 0 {
		item.Err = recordError(index, violations)
		return item
	}
	item.Value = value
	return item
}

// check decodes fields into dst one field at a time, so a type mismatch on
// one field does not hide violations on the others, then applies the
// validate tags
func (v *Validator) check(fields map[string]json.RawMessage, dst any, prefix string) []shared.FieldViolation {
	mistyped := make(map[string]bool)
	violations := decodeFields(fields, reflect.ValueOf(dst).Elem(), prefix, mistyped)

	err := v.validate.Struct(dst)
	var verrs validator.ValidationErrors
	if err != nil && errors.As(err, &verrs) {
		structType := reflect.TypeOf(dst).Elem()
		for _, fe := range verrs {
			field := prefix + fe.Field()
			if mistyped[field] {
				continue
			}
			violations = append(violations, shared.FieldViolation{
				Field:   field,
				Rule:    fe.Tag(),
				Message: violationMessage(fe, structType),
			})
		}
	}
	return violations
}

func decodeFields(fields map[string]json.RawMessage, dst reflect.Value, prefix string, mistyped map[string]bool) []shared.FieldViolation {
	var violations []shared.FieldViolation
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := dst.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			violations = append(violations, decodeFields(fields, fv, prefix, mistyped)...)
			continue
		}
		name := jsonName(sf)
		if name == "" || !sf.IsExported() {
			continue
		}
		raw, ok := present(fields, name)
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
			mistyped[prefix+name] = true
			violations = append(violations, shared.FieldViolation{
				Field:   prefix + name,
				Rule:    "type",
				Message: "Expected " + describeType(sf.Type),
			})
		}
	}
	return violations
}

func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func jsonName(sf reflect.StructField) string {
	name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func describeType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeOf(decimal.Decimal{}) {
		return "number"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	}
	return t.String()
}

func violationMessage(fe validator.FieldError, structType reflect.Type) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "required_with":
		return "Required when " + fieldJSONName(structType, fe.Param()) + " is set"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "Must contain at least " + fe.Param() + " entries"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "ne":
		return "Must not equal " + fe.Param()
	case "nefield":
		return "Must differ from " + fieldJSONName(structType, fe.Param())
	case "datetime":
		return "Must be an RFC 3339 timestamp"
	case "uuid":
		return "Invalid UUID format"
	default:
		return "Invalid value"
	}
}

// fieldJSONName resolves a Go field name used as a validator param to its
// json name, searching embedded structs
func fieldJSONName(t reflect.Type, goName string) string {
	if sf, ok := t.FieldByName(goName); ok {
		if name := jsonName(sf); name != "" {
			return name
		}
	}
	return goName
}

func recordError(index int, violations []shared.FieldViolation) *shared.DomainError {
	return shared.NewDomainError(
		shared.CodeRecordProcessing,
		fmt.Sprintf("Item %d failed validation", index),
	).WithDetails(map[string]any{
		"index":      index,
		"violations": violations,
	})
}

// eventFingerprint derives the stable event uuid of a payload from its
// organization, action and canonical attributes
func eventFingerprint(orgID uuid.UUID, action string, attrs eca.Attributes) (uuid.UUID, error) {
	canonical, err := attrs.Canonical()
	if err != nil {
		return uuid.Nil, shared.NewDomainError(shared.CodeValidation, "Attributes cannot be encoded")
	}
	seed := make([]byte, 0, len(canonical)+64)
	seed = append(seed, orgID.String()...)
	seed = append(seed, '|')
	seed = append(seed, action...)
	seed = append(seed, '|')
	seed = append(seed, canonical...)
	return uuid.NewSHA1(eventNamespace, seed), nil
}
