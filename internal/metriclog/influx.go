package metriclog

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement evaluations are written to.
const Measurement = "superres_eval"

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// pointWriter is the part of api.WriteAPIBlocking the publisher uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxPublisher writes one point per evaluation and one per benchmark.
type InfluxPublisher struct {
	client influxdb2.Client
	writer pointWriter
	run    string
	now    func() time.Time
}

// NewInfluxPublisher connects to InfluxDB. The client is lazy; connection
// errors surface on the first Publish.
func NewInfluxPublisher(cfg InfluxConfig, run string) *InfluxPublisher {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxPublisher{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		run:    run,
		now:    time.Now,
	}
}

// Points builds the points for rec.
func (p *InfluxPublisher) Points(rec Record) []*write.Point {
	ts := p.now()
	points := []*write.Point{
		influxdb2.NewPointWithMeasurement(Measurement).
			AddTag("run", p.run).
			AddTag("benchmark", "_loss").
			AddField("iteration", rec.Iteration).
			AddField("val_error", rec.ValError).
			AddField("eval_error", rec.EvalError).
			SetTime(ts),
	}
	for _, br := range rec.Benchmarks {
		points = append(points, influxdb2.NewPointWithMeasurement(Measurement).
			AddTag("run", p.run).
			AddTag("benchmark", br.Name).
			AddField("iteration", rec.Iteration).
			AddField("psnr", br.PSNR).
			AddField("ssim", br.SSIM).
			SetTime(ts))
	}
	return points
}

// Publish implements Publisher.
func (p *InfluxPublisher) Publish(ctx context.Context, rec Record) error {
	if err := p.writer.WritePoint(ctx, p.Points(rec)...); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

// Close releases the client.
func (p *InfluxPublisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
