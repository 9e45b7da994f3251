package schema

import (
	"encoding/json"
	"testing"
)

func characterSchema() *Schema {
	return New(
		Str("name", Required()),
		PosInt("age", Required()),
		Str("occupation"),
	)
}

func TestJSONSchema_Shape(t *testing.T) {
	t.Parallel()

	js := characterSchema().JSONSchema()
	if js["type"] != "object" {
		t.Fatalf("expected object, got %v", js["type"])
	}
	props := js["properties"].(map[string]interface{})
	age := props["age"].(map[string]interface{})
	if age["type"] != "integer" || age["exclusiveMinimum"] != 0 {
		t.Errorf("pos_integer should map to integer with exclusiveMinimum 0: %v", age)
	}
	required := js["required"].([]string)
	if len(required) != 2 {
		t.Errorf("expected 2 required fields, got %v", required)
	}
}

func TestValidateShape(t *testing.T) {
	t.Parallel()

	if err := characterSchema().ValidateShape(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := New(Str("bad-name"))
	if err := bad.ValidateShape(); err == nil {
		t.Error("expected invalid field name")
	}

	dup := New(Str("x"), Int("x"))
	if err := dup.ValidateShape(); err == nil {
		t.Error("expected duplicate field error")
	}

	list := Schema{Properties: []Property{{Name: "items", Type: TypeList}}}
	if err := list.ValidateShape(); err == nil {
		t.Error("expected missing item type error")
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	err := characterSchema().Validate(map[string]interface{}{
		"name": "Ada",
		"age":  float64(36),
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsPaths(t *testing.T) {
	t.Parallel()

	err := characterSchema().Validate(map[string]interface{}{
		"name": 42,
		"age":  -1,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Issues) == 0 {
		t.Fatal("expected issues")
	}
	paths := map[string]bool{}
	for _, issue := range verr.Issues {
		paths[issue.Path] = true
	}
	if !paths["/name"] && !paths["/age"] {
		t.Errorf("expected offending paths, got %v", verr.Issues)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Parallel()

	err := characterSchema().Validate(map[string]interface{}{"name": "Ada"})
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestValidate_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	s := New(
		Str("name", Required()),
		List("tags", Item(TypeString)),
		Map("extra"),
	)
	object := map[string]interface{}{
		"name":  "Ada",
		"tags":  []interface{}{"a", "b"},
		"extra": map[string]interface{}{"k": float64(1)},
	}
	if err := s.Validate(object); err != nil {
		t.Fatalf("pre-round-trip validation failed: %v", err)
	}

	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed map[string]interface{}
	if err := json.Unmarshal(raw, &reparsed); err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(reparsed); err != nil {
		t.Errorf("round-tripped object should still validate: %v", err)
	}
}

func TestCoerce_Integers(t *testing.T) {
	t.Parallel()

	out, err := characterSchema().Coerce(map[string]interface{}{
		"name": "Ada",
		"age":  float64(36),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if age, ok := out["age"].(int64); !ok || age != 36 {
		t.Errorf("expected int64 36, got %T %v", out["age"], out["age"])
	}
}

func TestCoerce_Defaults(t *testing.T) {
	t.Parallel()

	s := New(
		Str("name", Required()),
		Str("lang", Default("en")),
	)
	out, err := s.Coerce(map[string]interface{}{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["lang"] != "en" {
		t.Errorf("expected default applied, got %v", out["lang"])
	}
}

func TestCoerce_ListItems(t *testing.T) {
	t.Parallel()

	s := New(List("counts", Item(TypeInteger)))
	out, err := s.Coerce(map[string]interface{}{
		"counts": []interface{}{float64(1), float64(2)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := out["counts"].([]interface{})
	if items[0].(int64) != 1 || items[1].(int64) != 2 {
		t.Errorf("list items not coerced: %v", items)
	}
}

func TestCoerce_RejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := characterSchema().Coerce(map[string]interface{}{
		"name": "Ada",
		"age":  float64(0),
	})
	if err == nil {
		t.Error("pos_integer of 0 must fail")
	}
}
