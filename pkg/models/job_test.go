package models

import (
	"encoding/json"
	"testing"
)

func TestJobPayloadKind(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want JobKind
	}{
		{
			name: "legacy process image by variants sniff",
			raw:  `{"variants": {"thumb": {"width": 64}}}`,
			want: KindProcessImage,
		},
		{
			name: "tagged sync file variants",
			raw:  `{"type": "sync_file_variants", "variants_config": {"thumb": {"width": 64}}}`,
			want: KindSyncFileVariants,
		},
		{
			name: "tagged sync project variants",
			raw:  `{"type": "sync_project_variants", "project_id": "p1"}`,
			want: KindSyncProjectVariants,
		},
		{
			name: "failure envelope is not dispatchable",
			raw:  `{"error": "decode: bad magic", "original_payload": {"variants": {}}}`,
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p JobPayload
			if err := json.Unmarshal([]byte(tt.raw), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := p.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobPayloadVariantSet(t *testing.T) {
	legacy := JobPayload{Variants: map[string]VariantConfig{"thumb": {Width: 64}}}
	if got := legacy.VariantSet(); got["thumb"].Width != 64 {
		t.Errorf("legacy shape not surfaced: %+v", got)
	}

	tagged := JobPayload{
		Type:           string(KindSyncFileVariants),
		VariantsConfig: map[string]VariantConfig{"large": {MaxWidth: 1920, MaxHeight: 1080}},
	}
	if got := tagged.VariantSet(); got["large"].MaxWidth != 1920 {
		t.Errorf("tagged shape not surfaced: %+v", got)
	}
}

func TestJobPayloadFailureEnvelope(t *testing.T) {
	p := JobPayload{Variants: map[string]VariantConfig{"thumb": {Width: 64, Height: 64, Fit: "cover"}}}

	env, err := p.FailureEnvelope("decode: image: unknown format")
	if err != nil {
		t.Fatalf("FailureEnvelope: %v", err)
	}
	if env.Error != "decode: image: unknown format" {
		t.Errorf("error field: %q", env.Error)
	}

	var original JobPayload
	if err := json.Unmarshal(env.OriginalPayload, &original); err != nil {
		t.Fatalf("original_payload not JSON: %v", err)
	}
	if original.Variants["thumb"].Fit != "cover" {
		t.Errorf("original payload lost: %+v", original)
	}

	// Envelope must serialize without the dispatch fields present.
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if _, ok := shape["variants"]; ok {
		t.Error("envelope should not carry a variants key")
	}
	if _, ok := shape["error"]; !ok {
		t.Error("envelope missing error key")
	}
}

func TestJobPayloadScanValueRoundTrip(t *testing.T) {
	p := JobPayload{Type: string(KindSyncProjectVariants), ProjectID: "proj-1"}

	v, err := p.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out JobPayload
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.ProjectID != "proj-1" || out.Kind() != KindSyncProjectVariants {
		t.Errorf("round trip lost data: %+v", out)
	}

	// Stores hand back strings on some drivers.
	var fromString JobPayload
	if err := fromString.Scan(`{"variants":{}}`); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
}
