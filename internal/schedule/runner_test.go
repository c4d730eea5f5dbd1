package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ctxKey struct{}

func TestRunner_AddRejectsBadSpec(t *testing.T) {
	r := New(zap.NewNop(), context.Background(), time.UTC)

	_, err := r.Add("not a cron spec", func(context.Context) {})
	assert.Error(t, err)

	// five-field specs lack the seconds field
	_, err = r.Add("30 18 * * 1-5", func(context.Context) {})
	assert.Error(t, err)
}

func TestRunner_JobReceivesBaseContext(t *testing.T) {
	base := context.WithValue(context.Background(), ctxKey{}, "pipeline")
	r := New(nil, base, time.UTC)

	got := make(chan interface{}, 1)
	id, err := r.Add("0 30 18 * * 1-5", func(ctx context.Context) {
		got <- ctx.Value(ctxKey{})
	})
	require.NoError(t, err)

	r.cron.Entry(id).WrappedJob.Run()
	assert.Equal(t, "pipeline", <-got)
}

func TestRunner_NextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	r := New(nil, nil, loc)

	id, err := r.Add("0 30 18 * * 1-5", func(context.Context) {})
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	next := r.Next(id).In(loc)
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := New(nil, nil, time.UTC)

	id, err := r.Add("* * * * * *", func(context.Context) { panic("boom") })
	require.NoError(t, err)

	assert.NotPanics(t, func() { r.cron.Entry(id).WrappedJob.Run() })
}
