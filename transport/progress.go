package transport

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// progressReader is an io.Reader reporting every chunk read to fn, and
// logging at debug level at most once per second.
type progressReader struct {
	r         io.Reader
	fn        func(Progress)
	logger    *slog.Logger
	loaded    int64
	total     int64
	startTime time.Time
	lastLog   time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.loaded += int64(n)
		pr.fn(Progress{
			Loaded:           pr.loaded,
			Total:            max(pr.total, 0),
			LengthComputable: pr.total >= 0,
		})

		if pr.logger != nil && time.Since(pr.lastLog) >= time.Second {
			pr.lastLog = time.Now()
			pr.log("transfer progress")
		}
	}

	return n, err
}

func (pr *progressReader) log(msg string) {
	elapsed := time.Since(pr.startTime)
	attrs := []any{
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", pr.loaded,
		"total", pr.total,
	}
	if pr.total > 0 {
		attrs = append(attrs, "progress", fmt.Sprintf("%.1f%%", float64(pr.loaded)/float64(pr.total)*100))
	}
	pr.logger.Debug(msg, attrs...)
}
