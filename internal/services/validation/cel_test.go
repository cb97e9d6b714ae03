package validation

import "testing"

func TestCELEngine_Evaluate(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("NewCELEngine() error = %v", err)
	}

	tests := []struct {
		name       string
		expression string
		values     map[string]interface{}
		want       bool
		wantErr    bool
	}{
		{
			name:       "size check passes",
			expression: "size(this.name) > 0",
			values:     map[string]interface{}{"name": "Curry"},
			want:       true,
		},
		{
			name:       "size check fails",
			expression: "size(this.name) > 0",
			values:     map[string]interface{}{"name": ""},
			want:       false,
		},
		{
			name:       "comparison over numbers",
			expression: "this.count >= 0 && this.count < 100",
			values:     map[string]interface{}{"count": 42},
			want:       true,
		},
		{
			name:       "membership check",
			expression: `"rice" in this.ingredients`,
			values:     map[string]interface{}{"ingredients": []string{"rice", "roux"}},
			want:       true,
		},
		{
			name:       "missing key",
			expression: "this.missing == true",
			values:     map[string]interface{}{},
			wantErr:    true,
		},
		{
			name:       "non-boolean result",
			expression: "this.name",
			values:     map[string]interface{}{"name": "Curry"},
			wantErr:    true,
		},
		{
			name:       "invalid expression",
			expression: "this.name >",
			values:     map[string]interface{}{"name": "Curry"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.expression, tt.values)
			if (err != nil) != tt.wantErr {
				t.Errorf("Evaluate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCELEngine_Evaluate_NilValues(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("NewCELEngine() error = %v", err)
	}

	got, err := engine.Evaluate("size(this) == 0", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Error("Evaluate() with nil values should see an empty map")
	}
}

func TestCELEngine_ValidateExpression(t *testing.T) {
	engine, err := NewCELEngine()
	if err != nil {
		t.Fatalf("NewCELEngine() error = %v", err)
	}

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "valid boolean expression",
			expression: "size(this.name) > 0",
			wantErr:    false,
		},
		{
			name:       "syntax error",
			expression: "size(this.name >",
			wantErr:    true,
		},
		{
			name:       "non-boolean output",
			expression: "size(this.name)",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateExpression(tt.expression)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExpression() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
