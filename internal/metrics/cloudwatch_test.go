package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"airdemand/logger"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchSinkPublishesNumericMetrics(t *testing.T) {
	fake := &fakeCloudWatch{}
	sink := newCloudWatchSink(fake, "AirDemand", logger.Logger())

	sink.Handle(Metric{
		Timestamp: time.Unix(100, 0),
		Component: "provider",
		Name:      "generation_duration_ms",
		Value:     12,
		Fields:    logger.Fields{"source": "model", "ignored": 4},
	})

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one publish, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.Namespace != "AirDemand" {
		t.Fatalf("unexpected namespace: %s", *in.Namespace)
	}
	datum := in.MetricData[0]
	if *datum.MetricName != "generation_duration_ms" || *datum.Value != 12 {
		t.Fatalf("unexpected datum: %+v", datum)
	}
	if len(datum.Dimensions) != 2 {
		t.Fatalf("expected component and source dimensions, got %d", len(datum.Dimensions))
	}
}

func TestCloudWatchSinkSkipsNonNumeric(t *testing.T) {
	fake := &fakeCloudWatch{}
	sink := newCloudWatchSink(fake, "AirDemand", nil)
	sink.Handle(Metric{Name: "label", Value: "text"})
	if len(fake.inputs) != 0 {
		t.Fatalf("non-numeric metric should not be published")
	}
}

func TestCloudWatchSinkToleratesPublishErrors(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("throttled")}
	sink := newCloudWatchSink(fake, "AirDemand", nil)
	sink.Handle(Metric{Name: "x", Value: 1.5})
	if len(fake.inputs) != 1 {
		t.Fatalf("expected publish attempt")
	}
}
