package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportContent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := stubEngine(&stubLayer{})

	require.NoError(st.HideMessage(ctx, "msg-bad"))

	rep, err := eng.ReportContent(ctx, "reporter", "target", "msg-bad", "  scam link ")
	require.NoError(err)
	require.NotNil(rep.Upheld)
	assert.True(*rep.Upheld)
	assert.Equal("scam link", rep.Reason)

	ts, err := st.GetTrustScore(ctx, "reporter")
	require.NoError(err)
	assert.Equal(int64(1), ts.ReportsMade)
	assert.Equal(100.0, ts.ReportAccuracyScore)

	target, err := st.GetTrustScore(ctx, "target")
	require.NoError(err)
	assert.Equal(int64(1), target.ReportsReceived)
	assert.Equal(48.0, target.OverallTrustScore)

	rep, err = eng.ReportContent(ctx, "reporter", "innocent", "msg-fine", "I just don't like them")
	require.NoError(err)
	assert.False(*rep.Upheld)

	ts, err = st.GetTrustScore(ctx, "reporter")
	require.NoError(err)
	assert.Equal(int64(2), ts.ReportsMade)
	assert.Equal(50.0, ts.ReportAccuracyScore)
	// reporting is not a violation
	assert.Equal(NeutralTrustScore, ts.OverallTrustScore)
}

func TestReportUpheldByActiveAction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, _ := stubEngine(&stubLayer{})
	seedAction(t, eng, "warn-1", "target", models.ActionWarn, models.SeverityLow, time.Hour)

	rep, err := eng.ReportContent(ctx, "reporter", "target", "", "keeps harassing people")
	require.NoError(err)
	assert.True(*rep.Upheld)
}

func TestReportInvalid(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := stubEngine(&stubLayer{})

	_, err := eng.ReportContent(ctx, "alice", "alice", "msg-1", "me")
	assert.ErrorIs(err, ErrInvalidInput)
	_, err = eng.ReportContent(ctx, "", "bob", "msg-1", "who")
	assert.ErrorIs(err, ErrInvalidInput)
}

func TestReportAccuracy(t *testing.T) {
	assert := assert.New(t)
	yes, no := true, false

	_, ok := reportAccuracy(nil)
	assert.False(ok)
	_, ok = reportAccuracy([]models.UserReport{{}})
	assert.False(ok)

	acc, ok := reportAccuracy([]models.UserReport{{Upheld: &yes}, {Upheld: &no}, {Upheld: &no}, {Upheld: &yes}, {}})
	assert.True(ok)
	assert.Equal(50.0, acc)
}
