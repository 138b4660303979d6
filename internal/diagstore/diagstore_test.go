package diagstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RecordInputEvent("10.0.0.5:7255", "SEQERR_DUPLICATE"))
	require.NoError(t, s.RecordInputEvent("10.0.0.5:7255", "SEQERR_DUPLICATE"))
	require.NoError(t, s.RecordPipelineEvent("ch0", "DCMERR"))

	counts, err := s.Counts()
	require.NoError(t, err)
	assert.Len(t, counts, 2)

	var sawDup bool
	for _, c := range counts {
		if c.Scope == "input" && c.FlagName == "SEQERR_DUPLICATE" {
			sawDup = true
			assert.Equal(t, int64(2), c.Count)
		}
	}
	assert.True(t, sawDup, "expected SEQERR_DUPLICATE counter")
}

func TestOpenCreatesFileAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordInputEvent("x", "MVERR"))
	s1.Close()

	s2, err := Open(path)
	require.NoError(t, err, "reopen")
	defer s2.Close()

	counts, err := s2.Counts()
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(1), counts[0].Count)
}

func TestSummarizeComputesMeanAndPercentiles(t *testing.T) {
	counts := []Count{
		{Scope: "input", Ident: "a", FlagName: "SEQERR_DUPLICATE", Count: 1},
		{Scope: "input", Ident: "b", FlagName: "SEQERR_DUPLICATE", Count: 3},
		{Scope: "pipeline", Ident: "c", FlagName: "DCMERR", Count: 5},
	}

	summaries := Summarize(counts)
	require.Len(t, summaries, 2)

	byFlag := make(map[string]Summary, len(summaries))
	for _, s := range summaries {
		byFlag[s.FlagName] = s
	}

	dup := byFlag["SEQERR_DUPLICATE"]
	assert.InDelta(t, 2.0, dup.Mean, 0.001)

	dcm := byFlag["DCMERR"]
	assert.InDelta(t, 5.0, dcm.Mean, 0.001)
	assert.InDelta(t, 5.0, dcm.P50, 0.001)
}
