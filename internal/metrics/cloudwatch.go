package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"airdemand/logger"
)

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink publishes numeric metric events to CloudWatch.
type CloudWatchSink struct {
	client    putMetricDataAPI
	namespace string
	timeout   time.Duration
	log       *logger.Entry
	id        MetricHandlerID
}

// NewCloudWatchSink loads the default AWS configuration for region and
// returns a sink that is not yet attached to the metric stream.
func NewCloudWatchSink(ctx context.Context, region, namespace string, log *logger.Log) (*CloudWatchSink, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return newCloudWatchSink(cloudwatch.NewFromConfig(cfg), namespace, log), nil
}

func newCloudWatchSink(client putMetricDataAPI, namespace string, log *logger.Log) *CloudWatchSink {
	if log == nil {
		log = logger.GetLogger()
	}
	return &CloudWatchSink{
		client:    client,
		namespace: namespace,
		timeout:   5 * time.Second,
		log:       log.WithComponent("cloudwatch"),
	}
}

// Attach subscribes the sink to emitted metrics. Publishing happens off the
// emitting goroutine.
func (s *CloudWatchSink) Attach() {
	if s == nil || s.id != 0 {
		return
	}
	s.id = RegisterMetricHandler(func(m Metric) { go s.Handle(m) })
	s.log.WithField("namespace", s.namespace).Info("publishing metrics to CloudWatch")
}

// Detach stops publishing.
func (s *CloudWatchSink) Detach() {
	if s == nil {
		return
	}
	UnregisterMetricHandler(s.id)
	s.id = 0
}

// Handle publishes a single metric. Non-numeric values are skipped.
func (s *CloudWatchSink) Handle(m Metric) {
	value, ok := toFloat64(m.Value)
	if !ok {
		s.log.WithField("metric", m.Name).Debug("non-numeric metric value; skipping publish")
		return
	}

	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(m.Component)}}
	for k, v := range m.Fields {
		if str, ok := v.(string); ok {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(str)})
		}
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(s.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(m.Name),
			Dimensions: dims,
			Timestamp:  aws.Time(ts),
			Value:      aws.Float64(value),
		}},
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to publish CloudWatch metric")
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
