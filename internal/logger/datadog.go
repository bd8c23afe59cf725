package logger

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

const (
	dataDogSource         = "go"
	dataDogQueueSize      = 1024
	dataDogDefaultTimeout = 5 * time.Second
)

// DataDogWriter ships every log line to the DataDog logs intake.
// Lines are queued and submitted by a single background goroutine; when the queue
// is full new lines are dropped so logging never blocks the caller.
type DataDogWriter struct {
	api      *datadogV2.LogsApi
	ctx      context.Context //nolint:containedctx
	timeout  time.Duration
	service  string
	hostname string
	tags     string

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewDataDogWriter creates a DataDogWriter from the DataDog section of the log config.
func NewDataDogWriter(cfg Log) (*DataDogWriter, error) {
	dd := cfg.DataDog
	if dd.APIKey == "" {
		return nil, ErrDataDogAPIKeyIsEmpty
	}

	ctx := context.WithValue(
		context.Background(),
		datadog.ContextAPIKeys,
		map[string]datadog.APIKey{"apiKeyAuth": {Key: dd.APIKey}},
	)

	if dd.Site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{"site": dd.Site})
	}

	service := dd.ServiceName
	if service == "" {
		service = cfg.ServiceName
	}

	hostname := dd.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	timeout := dd.Timeout
	if timeout == 0 {
		timeout = dataDogDefaultTimeout
	}

	w := &DataDogWriter{
		api:      datadogV2.NewLogsApi(datadog.NewAPIClient(datadog.NewConfiguration())),
		ctx:      ctx,
		timeout:  timeout,
		service:  service,
		hostname: hostname,
		tags:     dd.Tags,
		queue:    make(chan []byte, dataDogQueueSize),
		done:     make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Write implements io.Writer.
func (w *DataDogWriter) Write(p []byte) (int, error) {
	line := bytes.Clone(bytes.TrimSpace(p))

	select {
	case w.queue <- line:
	default:
	}

	return len(p), nil
}

// Close stops the background sender after the queued lines were submitted.
func (w *DataDogWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.queue)
		<-w.done
	})

	return nil
}

func (w *DataDogWriter) run() {
	defer close(w.done)

	for line := range w.queue {
		w.submit(line)
	}
}

func (w *DataDogWriter) submit(line []byte) {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	item := datadogV2.HTTPLogItem{
		Ddsource: datadog.PtrString(dataDogSource),
		Hostname: datadog.PtrString(w.hostname),
		Message:  string(line),
		Service:  datadog.PtrString(w.service),
	}

	if w.tags != "" {
		item.Ddtags = datadog.PtrString(w.tags)
	}

	if _, _, err := w.api.SubmitLog(ctx, []datadogV2.HTTPLogItem{item}); err != nil {
		ErrorHandler(err)
	}
}
