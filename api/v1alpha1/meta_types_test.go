package v1alpha1

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

var stamp = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestTime_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Time
		want string
	}{
		{name: "zero is null", in: Time{}, want: "null"},
		{name: "RFC3339", in: NewTime(stamp), want: `"2026-03-14T09:26:53Z"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}

			var back Time
			if err := json.Unmarshal(got, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !back.Equal(tt.in.Time) {
				t.Errorf("Unmarshal() = %v, want %v", back.Time, tt.in.Time)
			}
		})
	}
}

func TestTime_UnmarshalJSON_Invalid(t *testing.T) {
	var got Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &got); err == nil {
		t.Error("Unmarshal() expected error for non-RFC3339 input")
	}
	if err := json.Unmarshal([]byte(`""`), &got); err != nil || !got.IsZero() {
		t.Errorf("Unmarshal(\"\") = %v, %v; want zero, nil", got.Time, err)
	}
}

func TestTime_YAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantZero bool
		wantErr  bool
	}{
		{name: "null", input: "null", wantZero: true},
		{name: "empty", input: "", wantZero: true},
		{name: "RFC3339", input: "2026-03-14T09:26:53Z"},
		{name: "garbage", input: "half past nine", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			err := yaml.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.IsZero() != tt.wantZero {
				t.Errorf("Unmarshal() zero = %v, want %v", got.IsZero(), tt.wantZero)
			}
		})
	}

	out, err := yaml.Marshal(struct {
		At Time `yaml:"at"`
	}{At: NewTime(stamp)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != "at: \"2026-03-14T09:26:53Z\"\n" {
		t.Errorf("Marshal() = %q", out)
	}
}
