package domain

import (
	"errors"
	"testing"
)

func TestModuleConfig_Equal(t *testing.T) {
	a := ModuleConfig{Name: "x", Files: []string{"x.lua"}}
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone is not equal")
	}
	b.Files[0] = "y.lua"
	if a.Equal(b) {
		t.Fatal("configs with different files compare equal")
	}
	if a.Files[0] != "x.lua" {
		t.Fatal("Clone shares the files slice")
	}
}

func TestRef_ModuleName(t *testing.T) {
	if got := NameRef("a").ModuleName(); got != "a" {
		t.Errorf("NameRef name = %q", got)
	}
	r := ConfigRef(ModuleConfig{Name: "b"})
	if !r.Inline() || r.ModuleName() != "b" {
		t.Errorf("ConfigRef = %+v", r)
	}
	if got := (Ref{}).ModuleName(); got != "" {
		t.Errorf("empty ref name = %q", got)
	}
}

func TestConfigFromMap(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]any
		want    ModuleConfig
		wantErr error
	}{
		{
			name: "full object",
			in: map[string]any{
				"name":     "reports",
				"files":    []any{"reports.lua", "charts.hcl"},
				"template": "reports.html",
				"onload":   "ready",
				"extra":    true,
			},
			want: ModuleConfig{Name: "reports", Files: []string{"reports.lua", "charts.hcl"}, Template: "reports.html", Onload: "ready"},
		},
		{
			name:    "missing name",
			in:      map[string]any{"files": []any{"a.lua"}},
			wantErr: ErrInvalidModuleRef,
		},
		{
			name:    "non string file",
			in:      map[string]any{"name": "a", "files": []any{1.0}},
			wantErr: ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfigFromMap(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
