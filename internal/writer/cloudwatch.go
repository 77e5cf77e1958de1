package writer

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

// cloudWatchBatchLimit is PutMetricData's per-call MetricDatum limit.
const cloudWatchBatchLimit = 20

// CloudWatchWriter batches emissions into PutMetricData calls.
type CloudWatchWriter struct {
	svc       *cloudwatch.CloudWatch
	namespace string
}

// NewCloudWatchWriter builds a writer against the given AWS region.
func NewCloudWatchWriter(region, namespace string) (*CloudWatchWriter, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &CloudWatchWriter{svc: cloudwatch.New(sess), namespace: namespace}, nil
}

// Write batches batch into PutMetricData calls of at most
// cloudWatchBatchLimit data points each.
func (w *CloudWatchWriter) Write(batch []aggregate.Emission) error {
	for start := 0; start < len(batch); start += cloudWatchBatchLimit {
		end := start + cloudWatchBatchLimit
		if end > len(batch) {
			end = len(batch)
		}
		if err := w.putChunk(batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *CloudWatchWriter) putChunk(chunk []aggregate.Emission) error {
	data := make([]*cloudwatch.MetricDatum, 0, len(chunk))
	for _, e := range chunk {
		ts := time.Unix(e.Timestamp, 0)
		data = append(data, &cloudwatch.MetricDatum{
			MetricName: aws.String(string(e.Name)),
			Value:      aws.Float64(e.Value),
			Timestamp:  aws.Time(ts),
		})
	}
	_, err := w.svc.PutMetricData(&cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(w.namespace),
		MetricData: data,
	})
	return err
}

// Close is a no-op: the CloudWatch SDK client has no persistent
// connection to tear down.
func (w *CloudWatchWriter) Close() error {
	return nil
}
