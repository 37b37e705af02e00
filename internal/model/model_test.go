package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClauseType(t *testing.T) {
	tests := []struct {
		in   string
		want ClauseType
		ok   bool
	}{
		{"obligation", ClauseObligation, true},
		{"Governing Law", ClauseGoverningLaw, true},
		{"ip-license", ClauseIPLicense, true},
		{"  \"NON_COMPETE\". ", ClauseNonCompete, true},
		{"payment", ClauseUnknown, false},
		{"", ClauseUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClauseType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClauseTypes_Complete(t *testing.T) {
	assert.Len(t, ClauseTypes, 18)
	for _, ct := range ClauseTypes {
		assert.True(t, ct.IsValid(), ct)
	}
	assert.False(t, ClauseType("payment").IsValid())
}

func TestNewClause_Defaults(t *testing.T) {
	c := NewClause(3, "The Supplier shall deliver.")
	assert.Equal(t, 3, c.ID)
	assert.Equal(t, ClauseUnknown, c.Type)
	assert.Equal(t, Unknown, c.Party)
	assert.NotNil(t, c.References)
	assert.Empty(t, c.References)
	assert.Zero(t, c.RiskScore)
}

func TestCalibration_Apply(t *testing.T) {
	cfg := DefaultConfig()

	nda, ok := cfg.Risk.CalibrationFor("nda")
	require.True(t, ok)
	assert.InDelta(t, 0.0, nda.Apply(0), 1e-9)
	assert.InDelta(t, 10.0, nda.Apply(0.5), 1e-9)
	assert.InDelta(t, 20.0, nda.Apply(1), 1e-9)
	assert.InDelta(t, 20.0, nda.Apply(3), 1e-9)

	msa, ok := cfg.Risk.CalibrationFor(" MSA ")
	require.True(t, ok)
	assert.InDelta(t, 70.0, msa.Apply(0), 1e-9)
	assert.InDelta(t, 85.0, msa.Apply(1), 1e-9)

	_, ok = cfg.Risk.CalibrationFor("SOW")
	assert.False(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Store.Driver = "mysql"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Risk.Calibrations["BAD"] = Calibration{Floor: 10, Ceiling: 5, Scale: 1}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Concurrency.ClauseWorkers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestContract_Persisted(t *testing.T) {
	c := NewContract("nda.txt", "text", DocumentMetadata{})
	assert.Equal(t, UnpersistedID, c.ID)
	assert.False(t, c.Persisted())
	c.ID = 7
	assert.True(t, c.Persisted())
}
