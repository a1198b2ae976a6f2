package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchRecorder(t *testing.T) {
	t.Run("Should buffer until flushed", func(t *testing.T) {
		fake := &fakeCloudWatch{}
		r := NewCloudWatchRecorder(fake, "Franklink", nil)

		r.GraphLoaded("ok", 4, 3, 12*time.Millisecond)
		r.AccountOperation("login", errors.New("rejected"))
		assert.Equal(t, 4, r.Pending())
		assert.Empty(t, fake.inputs)

		require.NoError(t, r.Flush(context.Background()))
		assert.Equal(t, 0, r.Pending())
		require.Len(t, fake.inputs, 1)
		assert.Equal(t, "Franklink", aws.ToString(fake.inputs[0].Namespace))

		data := fake.inputs[0].MetricData
		require.Len(t, data, 4)
		assert.Equal(t, "GraphLoads", aws.ToString(data[0].MetricName))
		assert.Equal(t, "Outcome", aws.ToString(data[0].Dimensions[0].Name))
		assert.Equal(t, "ok", aws.ToString(data[0].Dimensions[0].Value))

		last := data[3]
		assert.Equal(t, "AccountOperations", aws.ToString(last.MetricName))
		require.Len(t, last.Dimensions, 2)
		assert.Equal(t, "error", aws.ToString(last.Dimensions[1].Value))
	})

	t.Run("Should split large flushes into batches", func(t *testing.T) {
		fake := &fakeCloudWatch{}
		r := NewCloudWatchRecorder(fake, "Franklink", nil)
		for i := 0; i < cloudWatchBatch+5; i++ {
			r.PartialFailure("users")
		}

		require.NoError(t, r.Flush(context.Background()))
		require.Len(t, fake.inputs, 2)
		assert.Len(t, fake.inputs[0].MetricData, cloudWatchBatch)
		assert.Len(t, fake.inputs[1].MetricData, 5)
	})

	t.Run("Should report send failures and drop the batch", func(t *testing.T) {
		fake := &fakeCloudWatch{err: errors.New("throttled")}
		r := NewCloudWatchRecorder(fake, "Franklink", nil)
		r.LayoutStarted()
		r.LayoutSettled(300, true)

		assert.Error(t, r.Flush(context.Background()))
		assert.Equal(t, 0, r.Pending())
	})

	t.Run("Should not call the API when nothing is pending", func(t *testing.T) {
		fake := &fakeCloudWatch{}
		r := NewCloudWatchRecorder(fake, "Franklink", nil)
		require.NoError(t, r.Flush(context.Background()))
		assert.Empty(t, fake.inputs)
	})
}

func TestFanout(t *testing.T) {
	a, b := NewCollector("a"), NewCollector("b")
	fake := &fakeCloudWatch{}
	cw := NewCloudWatchRecorder(fake, "Franklink", nil)

	f := Fanout{a, b, cw}
	f.LayoutStarted()
	f.LayoutDestroyed()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.LayoutsDestroyed))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.LayoutsDestroyed))
	assert.Equal(t, 2, cw.Pending())
}
