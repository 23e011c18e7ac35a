package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

func TestParseConflictPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    types.ConflictPolicy
		wantErr bool
	}{
		{"", types.ConflictPolicyOverwrite, false},
		{"overwrite", types.ConflictPolicyOverwrite, false},
		{"reject", types.ConflictPolicyReject, false},
		{"merge", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseConflictPolicy(tt.input)
			if tt.wantErr {
				gt.Value(t, err).NotNil()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestParseContainment(t *testing.T) {
	tests := []struct {
		input   string
		want    types.Containment
		wantErr bool
	}{
		{"", types.ContainmentRaw, false},
		{"raw", types.ContainmentRaw, false},
		{"wraparound", types.ContainmentWraparound, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseContainment(tt.input)
			if tt.wantErr {
				gt.Value(t, err).NotNil()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}
