package batch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/olrwebtool/pkg/datastructure"
	"github.com/lintang-b-s/olrwebtool/pkg/matcher"
	"github.com/lintang-b-s/olrwebtool/pkg/openlr"
	"github.com/lintang-b-s/olrwebtool/pkg/testnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMatcher struct {
	calls atomic.Int64
}

func (f *fakeMatcher) Match(_ context.Context, code string) (*matcher.MatchedPath, error) {
	f.calls.Add(1)
	if strings.HasPrefix(code, "bad") {
		return nil, openlr.ErrNoMatchFound
	}
	return &matcher.MatchedPath{
		Code: code,
		Lines: []matcher.MatchedLine{
			{RoadID: 100, Direction: "F", Meta: "way/1000"},
			{RoadID: 101, Direction: "R", Meta: "way\t1010"},
		},
		Polyline:       "_p~iF~ps|U",
		Length:         250,
		PositiveOffset: 1.5,
	}, nil
}

func rows(t *testing.T, out string) [][]string {
	t.Helper()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, Header, lines[0])

	var res [][]string
	for _, l := range lines[1:] {
		cols := strings.Split(l, "\t")
		require.Len(t, cols, 9, l)
		res = append(res, cols)
	}
	return res
}

func TestRunKeepsFailuresAndOrder(t *testing.T) {
	testCases := []struct {
		name    string
		workers int
	}{
		{name: "single worker", workers: 1},
		{name: "many workers", workers: 8},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewRunner(&fakeMatcher{}, Config{Workers: tt.workers, ProgressEvery: 1}, zap.NewNop())

			stats, err := r.Run(context.Background(), strings.NewReader("first\nbad-second\n\n  third  \n"), &out)
			require.NoError(t, err)
			assert.Equal(t, Stats{Attempts: 3, Successes: 2, Failures: 1}, stats)

			got := rows(t, out.String())
			require.Len(t, got, 3)
			assert.Equal(t, []string{"first", "100,101", "F,R", "way/1000,way 1010", "250.00", "1.50", "0.00", "_p~iF~ps|U", ""}, got[0])
			assert.Equal(t, []string{"bad-second", "", "", "", "", "", "", "", "no match found"}, got[1])
			assert.Equal(t, "third", got[2][0])
		})
	}
}

func TestRunOversizedLineFailsAlone(t *testing.T) {
	input := "good1\n" + strings.Repeat("A", 2<<20) + "\ngood3\n"
	r := NewRunner(&fakeMatcher{}, Config{Workers: 4}, zap.NewNop())

	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempts: 3, Successes: 2, Failures: 1}, stats)

	got := rows(t, out.String())
	require.Len(t, got, 3)
	assert.Equal(t, "good1", got[0][0])
	assert.Empty(t, got[0][8])
	assert.Equal(t, strings.Repeat("A", previewBytes)+"...", got[1][0])
	assert.Contains(t, got[1][8], ErrLineTooLong.Error())
	assert.Equal(t, "good3", got[2][0])
	assert.Empty(t, got[2][8])
}

func TestRunReadErrorEndsInput(t *testing.T) {
	in := io.MultiReader(strings.NewReader("a\nb"), iotest.ErrReader(errors.New("disk gone")))
	r := NewRunner(&fakeMatcher{}, Config{Workers: 2}, zap.NewNop())

	var out bytes.Buffer
	stats, err := r.Run(context.Background(), in, &out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempts: 2, Successes: 1, Failures: 1}, stats)

	got := rows(t, out.String())
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1][0])
	assert.Contains(t, got[1][8], "disk gone")
}

func TestReadLine(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		limit     int
		want      []string
		truncated []bool
	}{
		{name: "short lines", input: "ab\r\ncd", limit: 8, want: []string{"ab", "cd"}, truncated: []bool{false, false}},
		{name: "exactly at limit", input: "abcdefgh\nx\n", limit: 8, want: []string{"abcdefgh", "x"}, truncated: []bool{false, false}},
		{name: "longer than the buffer", input: strings.Repeat("z", 100) + "\nok\n", limit: 20, want: []string{strings.Repeat("z", 20), "ok"}, truncated: []bool{true, false}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			br := bufio.NewReaderSize(strings.NewReader(tt.input), 16)
			for i := range tt.want {
				line, truncated, err := ReadLine(br, tt.limit)
				if err != nil {
					require.ErrorIs(t, err, io.EOF)
				}
				assert.Equal(t, tt.want[i], string(line))
				assert.Equal(t, tt.truncated[i], truncated)
			}
		})
	}
}

func TestRunDecodesDuplicatesOnce(t *testing.T) {
	fm := &fakeMatcher{}
	r := NewRunner(fm, Config{Workers: 1}, zap.NewNop())

	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader("a\nb\na\na\nbad\nbad\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, Stats{Attempts: 6, Successes: 4, Failures: 2}, stats)
	assert.Equal(t, int64(3), fm.calls.Load())
	assert.Len(t, rows(t, out.String()), 6)
}

func TestRunRateLimited(t *testing.T) {
	r := NewRunner(&fakeMatcher{}, Config{Workers: 2, Rate: 1000}, zap.NewNop())

	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader("a\nb\nc\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Successes)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRunWriteError(t *testing.T) {
	r := NewRunner(&fakeMatcher{}, Config{Workers: 2}, zap.NewNop())
	input := strings.Repeat("code\n", 10000)

	_, err := r.Run(context.Background(), strings.NewReader(input), failingWriter{})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestRunFileBzip2(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "codes.txt.bz2")

	f, err := os.Create(inPath)
	require.NoError(t, err)
	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	require.NoError(t, err)
	_, err = bz.Write([]byte("one\nbad-two\n"))
	require.NoError(t, err)
	require.NoError(t, bz.Close())
	require.NoError(t, f.Close())

	outPath := filepath.Join(dir, "out.tsv")
	r := NewRunner(&fakeMatcher{}, Config{Workers: 2}, zap.NewNop())
	stats, err := r.RunFile(context.Background(), inPath, outPath)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempts: 2, Successes: 1, Failures: 1}, stats)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	got := rows(t, string(data))
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0][0])
	assert.Equal(t, "bad-two", got[1][0])

	_, err = r.RunFile(context.Background(), filepath.Join(dir, "missing.txt"), outPath)
	assert.Error(t, err)
}

func TestRunWithMatcher(t *testing.T) {
	east, err := openlr.EncodeBinary(&openlr.LocationReference{Type: openlr.LineLocationType, Points: []openlr.LRP{
		{Coord: testnet.Node(1), FRC: datastructure.FRC3, FOW: datastructure.FOWSingleCarriageway, Bearing: 90, LFRCNP: datastructure.FRC3, DNP: 411},
		{Coord: testnet.Node(4), FRC: datastructure.FRC3, FOW: datastructure.FOWSingleCarriageway, Bearing: 270},
	}})
	require.NoError(t, err)

	r := NewRunner(matcher.New(testnet.Store(), zap.NewNop()), Config{Workers: 2}, zap.NewNop())
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), strings.NewReader(east+"\n!!!\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempts: 2, Successes: 1, Failures: 1}, stats)

	got := rows(t, out.String())
	assert.Equal(t, "100,101,102", got[0][1])
	assert.Equal(t, "F,F,F", got[0][2])
	assert.Equal(t, "way/1000,way/1010,way/1020", got[0][3])
	assert.Contains(t, got[1][8], "invalid location reference")
}
