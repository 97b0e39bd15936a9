package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	s := createTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	run, err := s.RecordRun(ctx, Run{
		Model:       "Account",
		Fingerprint: "fp",
		InputHash:   "ih",
		Valid:       false,
		Violations:  1,
		Errors:      "data should have required property 'name'",
		Source:      "payload.json",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, fixed, run.RecordedAt)

	got, err := s.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRecordRunRequiresModel(t *testing.T) {
	s := createTestStore(t)
	_, err := s.RecordRun(context.Background(), Run{})
	assert.Error(t, err)
}

func TestReadRunNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, r := range []Run{
		{Model: "Account", Valid: true},
		{Model: "User", Valid: false, Violations: 2},
		{Model: "Account", Valid: false, Violations: 1},
	} {
		_, err := s.RecordRun(ctx, r)
		require.NoError(t, err)
	}

	invalid := false
	tests := []struct {
		name     string
		filter   RunFilter
		wantSeqs []int64
	}{
		{"all newest first", RunFilter{}, []int64{3, 2, 1}},
		{"by model", RunFilter{Model: "Account"}, []int64{3, 1}},
		{"invalid only", RunFilter{Valid: &invalid}, []int64{3, 2}},
		{"limit", RunFilter{Limit: 1}, []int64{3}},
		{"no match", RunFilter{Model: "Nope"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.filter)
			require.NoError(t, err)
			seqs := make([]int64, len(runs))
			for i, r := range runs {
				seqs[i] = r.Seq
			}
			assert.Equal(t, tt.wantSeqs, seqs)
		})
	}
}
