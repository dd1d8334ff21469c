package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	"gacha-lab/internal/blob"
	"gacha-lab/internal/config"
	"gacha-lab/internal/observability"
)

// ErrUnknownFormat is returned for a report format other than json, markdown or csv.
var ErrUnknownFormat = errors.New("unknown report format")

// Rendered is a report serialized in one format.
type Rendered struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Render serializes the report in format (json, markdown or csv).
func Render(r *Report, format string) (*Rendered, error) {
	switch format {
	case config.FormatMarkdown:
		return &Rendered{Data: []byte(RenderMarkdown(r)), ContentType: "text/markdown; charset=utf-8", Ext: "md"}, nil
	case config.FormatCSV:
		out, err := RenderCSV(r)
		if err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		return &Rendered{Data: []byte(out), ContentType: "text/csv; charset=utf-8", Ext: "csv"}, nil
	case config.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return &Rendered{Data: append(data, '\n'), ContentType: "application/json", Ext: "json"}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Exporter writes rendered reports to a blob sink under reports/<result id>.<ext>.
type Exporter struct {
	sink    blob.Sink
	format  string
	log     *zap.Logger
	metrics *observability.Metrics
}

// NewExporter creates an exporter. A nil logger disables logging and nil
// metrics use observability.DefaultMetrics.
func NewExporter(sink blob.Sink, format string, log *zap.Logger, metrics *observability.Metrics) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Exporter{sink: sink, format: format, log: log, metrics: metrics}
}

// Export renders r and stores it. Returns the sink location.
func (e *Exporter) Export(ctx context.Context, r *Report) (string, error) {
	rendered, err := Render(r, e.format)
	if err != nil {
		e.metrics.RecordExport(e.sink.Driver(), e.format, err)
		return "", err
	}

	key := path.Join("reports", r.ResultID+"."+rendered.Ext)
	loc, err := e.sink.Put(ctx, key, rendered.Data, rendered.ContentType)
	e.metrics.RecordExport(e.sink.Driver(), e.format, err)
	if err != nil {
		e.log.Warn("export report failed",
			zap.String("result_id", r.ResultID),
			zap.String("driver", e.sink.Driver()),
			zap.Error(err),
		)
		return "", fmt.Errorf("export %s: %w", r.ResultID, err)
	}

	e.log.Info("report exported",
		zap.String("result_id", r.ResultID),
		zap.String("location", loc),
		zap.Int("bytes", len(rendered.Data)),
	)
	return loc, nil
}
