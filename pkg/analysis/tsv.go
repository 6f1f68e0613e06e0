package analysis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lintang-b-s/olrwebtool/pkg/batch"
	"github.com/lintang-b-s/olrwebtool/pkg/geo"
	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

const maxLineBytes = 4 << 20

var Header = strings.Join([]string{
	"code", "result", "profile", "source_length", "decoded_length", "max_deviation", "polyline", "error",
}, "\t")

// Summary counts the reports of a run by result. Failed counts rows that could not be analyzed.
type Summary struct {
	Results map[Result]int
	Failed  int
}

// Run reads "code<TAB>path" lines from in and writes one report row per line to out. A row that
// cannot be analyzed carries the error and does not stop the run.
func (a *Analyzer) Run(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	sum := Summary{Results: make(map[Result]int)}
	br := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	if _, err := w.WriteString(Header + "\n"); err != nil {
		return sum, err
	}

	for lineNo := 1; ; lineNo++ {
		line, truncated, readErr := batch.ReadLine(br, maxLineBytes)
		if readErr != nil && readErr != io.EOF {
			return sum, fmt.Errorf("read line %d: %w", lineNo, readErr)
		}

		text := strings.TrimSpace(string(line))
		if text != "" || truncated {
			code, rep, err := a.analyzeLine(ctx, text, truncated)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sum, err
			}
			if err != nil {
				a.log.Info("analysis failed", zap.Int("line", lineNo), zap.Error(err))
				sum.Failed++
			} else {
				sum.Results[rep.Result]++
			}
			if _, err := w.WriteString(FormatReport(code, rep, err) + "\n"); err != nil {
				return sum, err
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	return sum, w.Flush()
}

// RunFile runs the analysis from inPath to outPath, either of them may be bzip2 compressed.
func (a *Analyzer) RunFile(ctx context.Context, inPath, outPath string) (Summary, error) {
	in, err := batch.OpenInput(inPath)
	if err != nil {
		return Summary{}, err
	}
	defer in.Close()

	out, err := batch.CreateOutput(outPath)
	if err != nil {
		return Summary{}, err
	}

	sum, err := a.Run(ctx, in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return sum, err
}

func (a *Analyzer) analyzeLine(ctx context.Context, text string, truncated bool) (string, *Report, error) {
	code, path, ok := strings.Cut(text, "\t")
	code = strings.TrimSpace(code)
	if truncated {
		if len(code) > 64 {
			code = code[:64] + "..."
		}
		return code, nil, util.WrapErrorf(batch.ErrLineTooLong, util.ErrBadParamInput, "line exceeds %d bytes", maxLineBytes)
	}
	if !ok {
		return code, nil, util.WrapErrorf(geo.ErrInvalidPath, util.ErrBadParamInput, "missing source path")
	}
	source, err := geo.ParsePath(path)
	if err != nil {
		return code, nil, util.WrapErrorf(err, util.ErrBadParamInput, "source path")
	}
	rep, err := a.Analyze(ctx, code, source)
	return code, rep, err
}

// FormatReport renders one row without the trailing newline. Either rep or err is set.
func FormatReport(code string, rep *Report, err error) string {
	cols := make([]string, 8)
	cols[0] = util.SanitizeField(code)
	if err != nil {
		cols[7] = util.SanitizeField(err.Error())
		return strings.Join(cols, "\t")
	}
	cols[1] = rep.Result.String()
	cols[2] = rep.Profile
	cols[3] = strconv.FormatFloat(rep.SourceLength, 'f', 2, 64)
	cols[4] = strconv.FormatFloat(rep.DecodedLength, 'f', 2, 64)
	cols[5] = strconv.FormatFloat(rep.MaxDeviation, 'f', 2, 64)
	cols[6] = rep.Polyline
	return strings.Join(cols, "\t")
}
