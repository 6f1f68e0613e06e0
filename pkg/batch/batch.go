// Package batch decodes a file of location references, one per line, into a TSV report.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lintang-b-s/olrwebtool/pkg/concurrent"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"github.com/spf13/viper"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultMaxLineBytes = 1 << 20
	previewBytes        = 64
)

var ErrLineTooLong = errors.New("input line too long")

// Matcher decodes a single reference.
type Matcher interface {
	Match(ctx context.Context, code string) (*matcher.MatchedPath, error)
}

type Config struct {
	Workers int
	// Rate limits decodes per second, 0 means unlimited.
	Rate float64
	// ProgressEvery logs progress after that many records, 0 disables it.
	ProgressEvery int
	// MaxLineBytes caps a single input line. Longer lines fail on their own.
	MaxLineBytes int
}

func ConfigFromViper() Config {
	return Config{
		Workers:       viper.GetInt("BATCH_WORKERS"),
		Rate:          viper.GetFloat64("BATCH_RATE"),
		ProgressEvery: viper.GetInt("BATCH_PROGRESS_EVERY"),
		MaxLineBytes:  viper.GetInt("BATCH_MAX_LINE_BYTES"),
	}
}

type Stats struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// Record is the outcome of one input line. Either Path or Err is set.
type Record struct {
	Code string
	Path *matcher.MatchedPath
	Err  error
}

type Runner struct {
	m       Matcher
	cfg     Config
	log     *zap.Logger
	limiter *rate.Limiter

	group   singleflight.Group
	cacheMu sync.RWMutex
	cache   map[uint64]Record
}

func NewRunner(m Matcher, cfg Config, log *zap.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxLineBytes < 1 {
		cfg.MaxLineBytes = defaultMaxLineBytes
	}
	r := &Runner{m: m, cfg: cfg, log: log, cache: make(map[uint64]Record)}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return r
}

// Run reads references from in and writes one TSV row per non-blank input line to out, in input
// order. Failed decodes are reported in the error column and never stop the run. So are lines
// longer than MaxLineBytes and a failed read, which also ends the input.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	var stats Stats

	pool := concurrent.NewWorkerPool[entry, Record](r.cfg.Workers, 2*r.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	pool.Start(gctx, r.process)

	g.Go(func() error {
		defer pool.Close()
		br := bufio.NewReader(in)
		idx := 0
		for lineNo := 1; ; lineNo++ {
			line, truncated, readErr := ReadLine(br, r.cfg.MaxLineBytes)

			var e entry
			switch {
			case readErr != nil && readErr != io.EOF:
				r.log.Error("read batch input", zap.Int("line", lineNo), zap.Error(readErr))
				e = entry{code: preview(line), err: util.WrapErrorf(readErr, util.ErrBadParamInput, "read line %d", lineNo)}
			case truncated:
				e = entry{code: preview(line), err: fmt.Errorf("%w: line %d exceeds %d bytes", ErrLineTooLong, lineNo, r.cfg.MaxLineBytes)}
			default:
				e = entry{code: strings.TrimSpace(string(line))}
			}

			if e.code != "" || e.err != nil {
				if err := pool.AddJob(gctx, idx, e); err != nil {
					return err
				}
				idx++
			}
			if readErr != nil {
				// nothing more can be read after a failed read.
				return nil
			}
		}
	})
	go pool.Wait()

	g.Go(func() error {
		w := bufio.NewWriter(out)
		if _, err := w.WriteString(Header + "\n"); err != nil {
			return err
		}

		pending := make(map[int]Record)
		next := 0
		for res := range pool.CollectResults() {
			pending[res.Index] = res.Value
			for {
				rec, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				if _, err := w.WriteString(FormatRecord(rec) + "\n"); err != nil {
					return err
				}
				stats.Attempts++
				if rec.Err != nil {
					stats.Failures++
				} else {
					stats.Successes++
				}
				if r.cfg.ProgressEvery > 0 && stats.Attempts%r.cfg.ProgressEvery == 0 {
					r.log.Info("batch progress", zap.Int("attempts", stats.Attempts),
						zap.Int("successes", stats.Successes), zap.Int("failures", stats.Failures))
				}
			}
		}
		return w.Flush()
	})

	err := g.Wait()
	r.log.Info("batch done", zap.Int("attempts", stats.Attempts),
		zap.Int("successes", stats.Successes), zap.Int("failures", stats.Failures))
	return stats, err
}

type entry struct {
	code string
	err  error
}

func (r *Runner) process(ctx context.Context, e entry) Record {
	if e.err != nil {
		r.log.Info("skipping batch entry", zap.String("code", e.code), zap.Error(e.err))
		return Record{Code: e.code, Err: e.err}
	}
	return r.decode(ctx, e.code)
}

// ReadLine returns the next line without its terminator. Bytes beyond limit are discarded and
// reported through truncated.
func ReadLine(br *bufio.Reader, limit int) (line []byte, truncated bool, err error) {
	for {
		frag, err := br.ReadSlice('\n')
		frag = bytes.TrimSuffix(frag, []byte{'\n'})
		if room := limit - len(line); room < len(frag) {
			line = append(line, frag[:max(room, 0)]...)
			truncated = true
		} else {
			line = append(line, frag...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimSuffix(line, []byte{'\r'}), truncated, err
	}
}

func preview(line []byte) string {
	s := strings.TrimSpace(string(line))
	if len(s) > previewBytes {
		return s[:previewBytes] + "..."
	}
	return s
}

// decode serves repeated references from the cache. Concurrent requests for the same reference
// share one decode.
func (r *Runner) decode(ctx context.Context, code string) Record {
	key := xxh3.HashString(code)
	r.cacheMu.RLock()
	rec, ok := r.cache[key]
	r.cacheMu.RUnlock()
	if ok && rec.Code == code {
		return rec
	}

	v, _, _ := r.group.Do(code, func() (interface{}, error) {
		rec := Record{Code: code}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				rec.Err = err
				return rec, nil
			}
		}
		rec.Path, rec.Err = r.m.Match(ctx, code)
		if rec.Err != nil {
			r.log.Info("decode failed", zap.String("code", code), zap.Error(rec.Err))
		}
		if !errors.Is(rec.Err, context.Canceled) && !errors.Is(rec.Err, context.DeadlineExceeded) {
			r.cacheMu.Lock()
			r.cache[key] = rec
			r.cacheMu.Unlock()
		}
		return rec, nil
	})
	return v.(Record)
}
