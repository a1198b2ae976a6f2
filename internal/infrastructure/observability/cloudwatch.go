package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Sink receives the graph, layout and account events that both the
// Prometheus collector and the CloudWatch recorder understand.
type Sink interface {
	GraphLoaded(outcome string, nodes, edges int, elapsed time.Duration)
	PartialFailure(query string)
	LayoutStarted()
	LayoutSettled(ticks int, hitCeiling bool)
	LayoutDestroyed()
	AccountOperation(op string, err error)
}

var (
	_ Sink = (*Collector)(nil)
	_ Sink = (*CloudWatchRecorder)(nil)
	_ Sink = Fanout(nil)
)

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) GraphLoaded(outcome string, nodes, edges int, elapsed time.Duration) {
	for _, s := range f {
		s.GraphLoaded(outcome, nodes, edges, elapsed)
	}
}

func (f Fanout) PartialFailure(query string) {
	for _, s := range f {
		s.PartialFailure(query)
	}
}

func (f Fanout) LayoutStarted() {
	for _, s := range f {
		s.LayoutStarted()
	}
}

func (f Fanout) LayoutSettled(ticks int, hitCeiling bool) {
	for _, s := range f {
		s.LayoutSettled(ticks, hitCeiling)
	}
}

func (f Fanout) LayoutDestroyed() {
	for _, s := range f {
		s.LayoutDestroyed()
	}
}

func (f Fanout) AccountOperation(op string, err error) {
	for _, s := range f {
		s.AccountOperation(op, err)
	}
}

// MetricsAPI is the part of the CloudWatch client the recorder uses.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// cloudWatchBatch is the number of datums sent per PutMetricData call.
const cloudWatchBatch = 20

// CloudWatchRecorder buffers datums in memory and sends them on Flush. It is
// used where nothing scrapes /metrics, such as the Lambda entrypoint.
type CloudWatchRecorder struct {
	client    MetricsAPI
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

// NewCloudWatchRecorder creates a recorder publishing under namespace.
func NewCloudWatchRecorder(client MetricsAPI, namespace string, logger *zap.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *CloudWatchRecorder) add(name string, value float64, unit types.StandardUnit, dims ...string) {
	d := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(r.now()),
	}
	for i := 0; i+1 < len(dims); i += 2 {
		d.Dimensions = append(d.Dimensions, types.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}

	r.mu.Lock()
	r.pending = append(r.pending, d)
	r.mu.Unlock()
}

func (r *CloudWatchRecorder) GraphLoaded(outcome string, nodes, edges int, elapsed time.Duration) {
	r.add("GraphLoads", 1, types.StandardUnitCount, "Outcome", outcome)
	r.add("GraphLoadLatency", float64(elapsed.Milliseconds()), types.StandardUnitMilliseconds)
	r.add("GraphNodes", float64(nodes), types.StandardUnitCount)
}

func (r *CloudWatchRecorder) PartialFailure(query string) {
	r.add("PartialFailures", 1, types.StandardUnitCount, "Query", query)
}

func (r *CloudWatchRecorder) LayoutStarted() {
	r.add("LayoutsStarted", 1, types.StandardUnitCount)
}

func (r *CloudWatchRecorder) LayoutSettled(ticks int, hitCeiling bool) {
	end := "converged"
	if hitCeiling {
		end = "ceiling"
	}
	r.add("LayoutTicks", float64(ticks), types.StandardUnitCount, "End", end)
}

func (r *CloudWatchRecorder) LayoutDestroyed() {
	r.add("LayoutsDestroyed", 1, types.StandardUnitCount)
}

func (r *CloudWatchRecorder) AccountOperation(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.add("AccountOperations", 1, types.StandardUnitCount, "Operation", op, "Status", status)
}

// Pending returns the number of buffered datums.
func (r *CloudWatchRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush sends everything buffered so far. Datums from a failed batch are
// dropped and the error is returned after the remaining batches are tried.
func (r *CloudWatchRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	var firstErr error
	for start := 0; start < len(pending); start += cloudWatchBatch {
		end := min(start+cloudWatchBatch, len(pending))
		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(r.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			r.logger.Warn("failed to send metrics",
				zap.Error(err),
				zap.Int("datums", end-start))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
