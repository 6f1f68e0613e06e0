package batch

import (
	"strconv"
	"strings"

	"github.com/lintang-b-s/olrwebtool/pkg/util"
)

var Header = strings.Join([]string{
	"code", "road_ids", "directions", "metas", "length", "p_off", "n_off", "polyline", "error",
}, "\t")

// FormatRecord renders rec as one TSV row without the trailing newline. List columns are
// comma separated.
func FormatRecord(rec Record) string {
	cols := make([]string, 9)
	cols[0] = util.SanitizeField(rec.Code)
	if rec.Err != nil {
		cols[8] = util.SanitizeField(rec.Err.Error())
		return strings.Join(cols, "\t")
	}

	p := rec.Path
	ids := make([]string, len(p.Lines))
	dirs := make([]string, len(p.Lines))
	metas := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		ids[i] = strconv.FormatInt(l.RoadID, 10)
		dirs[i] = l.Direction
		metas[i] = util.SanitizeField(l.Meta)
	}
	cols[1] = strings.Join(ids, ",")
	cols[2] = strings.Join(dirs, ",")
	cols[3] = strings.Join(metas, ",")
	cols[4] = strconv.FormatFloat(p.Length, 'f', 2, 64)
	cols[5] = strconv.FormatFloat(p.PositiveOffset, 'f', 2, 64)
	cols[6] = strconv.FormatFloat(p.NegativeOffset, 'f', 2, 64)
	cols[7] = p.Polyline
	return strings.Join(cols, "\t")
}
