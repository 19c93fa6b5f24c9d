package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type storeSettings struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Currencies []string          `json:"currencies"`
	Attributes map[string]string `json:"attributes"`
	Tags       []string          `json:"tags"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		ctx       Context
		input     map[string]any
		options   []DecoderOption[storeSettings]
		expect    storeSettings
		expectErr string
	}{
		{
			name:   "plain",
			ctx:    Context{Source: "stores.json"},
			input:  map[string]any{"id": 1, "name": "EU", "currencies": []any{"EUR"}},
			expect: storeSettings{ID: 1, Name: "EU", Currencies: []string{"EUR"}},
		},
		{
			name:    "pre hook stringifies attributes",
			ctx:     Context{Source: "stores.json", Section: "attributes"},
			input:   map[string]any{"id": 2, "attributes": map[string]any{"price": 12.5, "active": true}},
			options: []DecoderOption[storeSettings]{WithPreHook[storeSettings](stringifyAttributes)},
			expect:  storeSettings{ID: 2, Attributes: map[string]string{"price": "12.5", "active": "true"}},
		},
		{
			name:    "post hook tags from source",
			ctx:     Context{Source: "catalog/stores.json", Section: "stores"},
			input:   map[string]any{"id": 3},
			options: []DecoderOption[storeSettings]{WithPostHook[storeSettings](tagFromContext)},
			expect:  storeSettings{ID: 3, Tags: []string{"stores:catalog/stores.json"}},
		},
		{
			name:      "unknown fields rejected",
			ctx:       Context{Source: "stores.json"},
			input:     map[string]any{"id": 4, "extra": true},
			options:   []DecoderOption[storeSettings]{WithDisallowUnknownFields[storeSettings]()},
			expectErr: "unknown field",
		},
		{
			name:      "pre hook error wrapped",
			ctx:       Context{Source: "broken.json"},
			input:     map[string]any{"id": 5},
			options:   []DecoderOption[storeSettings]{WithPreHook[storeSettings](func(Context, map[string]any) (map[string]any, error) { return nil, errors.New("nope") })},
			expectErr: `pre-hook for source "broken.json" failed`,
		},
		{
			name:  "custom decoder",
			ctx:   Context{Source: "raw.json"},
			input: map[string]any{"raw": `{"id":6,"name":"raw"}`},
			options: []DecoderOption[storeSettings]{WithCustomDecoder[storeSettings](func(ctx Context, payload map[string]any) (storeSettings, error) {
				var out storeSettings
				raw, _ := payload["raw"].(string)
				err := json.Unmarshal([]byte(raw), &out)
				return out, err
			})},
			expect: storeSettings{ID: 6, Name: "raw"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewDecoder[storeSettings](tc.options...).Decode(tc.ctx, tc.input)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"id": 1, "attributes": map[string]any{"price": 1.5}}
	decoder := NewDecoder[storeSettings](WithPreHook[storeSettings](stringifyAttributes))
	if _, err := decoder.Decode(Context{Source: "x"}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	attrs := input["attributes"].(map[string]any)
	if _, ok := attrs["price"].(float64); !ok {
		t.Fatalf("expected caller payload untouched, got %T", attrs["price"])
	}
}

func TestDecodeBytes(t *testing.T) {
	decoder := NewDecoder[storeSettings]()
	got, err := decoder.DecodeBytes(Context{Source: "inline"}, []byte(`{"id":9,"name":"US"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 9 || got.Name != "US" {
		t.Fatalf("unexpected result %+v", got)
	}
	if _, err := decoder.DecodeBytes(Context{Source: "inline"}, []byte(`[1,2]`)); err == nil {
		t.Fatalf("expected non-object payload to fail")
	}
}

func TestDecodeNilPayload(t *testing.T) {
	if _, err := NewDecoder[storeSettings]().Decode(Context{Source: "nil"}, nil); err == nil {
		t.Fatalf("expected nil payload error")
	}
}

func stringifyAttributes(_ Context, payload map[string]any) (map[string]any, error) {
	attrs, ok := payload["attributes"].(map[string]any)
	if !ok {
		return payload, nil
	}
	for key, value := range attrs {
		attrs[key] = fmt.Sprint(value)
	}
	return payload, nil
}

func tagFromContext(ctx Context, out *storeSettings) error {
	if out == nil {
		return errors.New("result is nil")
	}
	out.Tags = append(out.Tags, ctx.Section+":"+ctx.Source)
	return nil
}
