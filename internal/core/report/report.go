package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/core/model"
)

// Reporter emits the end-of-run summary: one structured log line, the
// per-item failure details, and one JSON line appended to the run log. It
// never returns an error; a run whose work completed must not be turned
// into a failure by its own summary. If the run log cannot be written the
// record goes to stderr instead.
type Reporter struct {
	log      *zap.SugaredLogger
	runLog   string
	fallback io.Writer
}

func New(log *zap.SugaredLogger, runLog string) *Reporter {
	return &Reporter{log: log, runLog: runLog, fallback: os.Stderr}
}

// Report publishes the batch result.
func (r *Reporter) Report(res model.BatchResult) {
	r.log.Infow("run finished",
		"run_id", res.RunID,
		"job", res.Job,
		"succeeded", res.Succeeded,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"total", res.Total(),
		"duration", res.FinishedAt.Sub(res.StartedAt).String(),
	)
	for _, f := range res.Failures {
		r.log.Warnw("item failed", "run_id", res.RunID, "identity", f.Identity, "detail", f.Detail)
	}
	r.append(res)
}

// append writes the run record as one JSON line. Failures here degrade to
// the fallback writer, never to an error.
func (r *Reporter) append(res model.BatchResult) {
	if r.runLog == "" {
		return
	}
	line, err := json.Marshal(res)
	if err != nil {
		r.degrade(res, err)
		return
	}
	line = append(line, '\n')

	if dir := filepath.Dir(r.runLog); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.degrade(res, err)
			return
		}
	}
	f, err := os.OpenFile(r.runLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.degrade(res, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		r.degrade(res, err)
	}
}

func (r *Reporter) degrade(res model.BatchResult, cause error) {
	fmt.Fprintf(r.fallback, "run %s (%s): %s - run log unavailable: %v\n",
		res.RunID, res.Job, res.Summary(), cause)
}

// ReadRunLog parses the run log back into batch results, oldest first. A
// missing file means no runs yet. Unparsable lines are skipped so one bad
// line never hides the rest.
func ReadRunLog(path string) ([]model.BatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []model.BatchResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var res model.BatchResult
		if err := json.Unmarshal(line, &res); err != nil {
			continue
		}
		out = append(out, res)
	}
	return out, sc.Err()
}
