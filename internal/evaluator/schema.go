// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package evaluator

import (
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/value"
	"github.com/playbymail/yini/internal/yerrors"
)

// validateSchema implements pass 4 (spec §4.D): every (section, key) the
// schema names is checked against the merged, resolved DOM. Schema-free
// sections and keys pass through unchanged.
func validateSchema(d *dom.Document) *yerrors.Error {
	for sectionName, rules := range d.Schema {
		for key, rule := range rules {
			sec, ok := d.Section(sectionName)
			var v value.Value
			var has bool
			if ok {
				v, has = sec.Get(key)
			}
			if !has {
				if !rule.Required {
					if rule.Default != nil {
						if !ok {
							sec = d.AddSection(sectionName, nil)
						}
						sec.AddEntry(key, *rule.Default)
					}
					continue
				}
				if rule.OnEmpty == "default" && rule.Default != nil {
					if !ok {
						sec = d.AddSection(sectionName, nil)
					}
					sec.AddEntry(key, *rule.Default)
					continue
				}
				return yerrors.Unpositioned(yerrors.KindMissingRequired, "missing required key %q in section %q", key, sectionName)
			}
			if !typeMatches(rule.Type, rule.ElementType, v) {
				return yerrors.Unpositioned(yerrors.KindTypeMismatch, "%s.%s: expected %s, got %s", sectionName, key, describeSchemaType(rule), v.Kind)
			}
			if v.IsNumeric() && (rule.Min != nil || rule.Max != nil) {
				f := v.AsFloat()
				if rule.Min != nil && f < *rule.Min {
					return yerrors.Unpositioned(yerrors.KindOutOfRange, "%s.%s: %v is below minimum %v", sectionName, key, f, *rule.Min)
				}
				if rule.Max != nil && f > *rule.Max {
					return yerrors.Unpositioned(yerrors.KindOutOfRange, "%s.%s: %v is above maximum %v", sectionName, key, f, *rule.Max)
				}
			}
		}
	}
	return nil
}

func typeMatches(declared, elementType string, v value.Value) bool {
	switch declared {
	case "int":
		return v.Kind == value.Int || v.Kind == value.Float
	case "float":
		return v.IsNumeric()
	case "bool":
		return v.Kind == value.Bool
	case "string":
		return v.Kind == value.Str
	case "array":
		if v.Kind != value.Array && v.Kind != value.List && v.Kind != value.Tuple && v.Kind != value.Set {
			return false
		}
		if elementType == "" {
			return true
		}
		for _, item := range v.Items {
			if !typeMatches(elementType, "", item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func describeSchemaType(rule dom.SchemaRule) string {
	if rule.Type == "array" && rule.ElementType != "" {
		return "array[" + rule.ElementType + "]"
	}
	return rule.Type
}
