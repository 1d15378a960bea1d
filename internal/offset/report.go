package offset

import (
	"bytes"
	"fmt"
	"io"

	"jitreg/internal/correlate"
)

// ReportInfo carries the run parameters echoed into the report header
// and summary blocks. Fields the legacy layout reserves for spacecraft
// metadata are emitted as zero placeholders.
type ReportInfo struct {
	LeftPath  string
	RightPath string

	ImageWidth  int
	ImageHeight int

	LeftCropStartX  int
	RightCropStartX int
	CropWidth       int

	Kernel correlate.Kernel
	Cost   correlate.CostFunc
}

// WriteReport renders the registration report: a fixed header block per
// input image, one `row, vertical, horizontal` line per image row, and
// a summary block. A result with zero valid rows gets explicit NULL
// markers instead of offset statistics.
func WriteReport(w io.Writer, info ReportInfo, res *Result) error {
	var buf bytes.Buffer

	buf.WriteString("#       jitreg Registration Results\n")
	buf.WriteString("#    Coordinates are (Sample, Line) unless indicated\n")
	buf.WriteString("#           RunDate:  0\n")
	buf.WriteString("#\n#    ****  Image Input Information ****\n")
	writeImageBlock(&buf, "#  FROM:  ", info.LeftPath, info, info.LeftCropStartX)
	buf.WriteString("\n")
	writeImageBlock(&buf, "#  MATCH: ", info.RightPath, info, info.RightCropStartX)
	buf.WriteString("\n")

	for row := range res.RowVertical {
		fmt.Fprintf(&buf, "%d, %.8g, %.8g\n",
			row, res.RowVertical[row], res.RowHorizontal[row])
	}

	buf.WriteString("\n#  **** Registration Data ****\n")
	buf.WriteString("#   RegFile: \n")
	fmt.Fprintf(&buf, "#   OverlapSize:      %7d %7d\n", info.CropWidth, info.ImageHeight)
	buf.WriteString("#   Sample Spacing:   1\n")
	buf.WriteString("#   Line Spacing:     1\n")
	fmt.Fprintf(&buf, "#   Columns, Rows:    %d %d\n", info.Kernel.X, info.Kernel.Y)
	fmt.Fprintf(&buf, "#   Corr. Algorithm:  %s\n", info.Cost)
	buf.WriteString("#   Corr. Tolerance:  0\n")
	buf.WriteString("#   Total Registers:  0 of 0\n")
	buf.WriteString("#   Number Suspect:   0\n")
	if res.ValidRows > 0 {
		fmt.Fprintf(&buf, "#   Average Sample Offset: %.4g  StdDev: %.4g\n",
			res.MeanX, res.StdDevX)
		fmt.Fprintf(&buf, "#   Average Line Offset:   %.4g StdDev: %.4g\n",
			res.MeanY, res.StdDevY)
	} else {
		buf.WriteString("#   Average Sample Offset: NULL\n")
		buf.WriteString("#   Average Line Offset:   NULL\n")
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("offset: writing report: %w", err)
	}
	return nil
}

func writeImageBlock(buf *bytes.Buffer, label, path string, info ReportInfo, cropStartX int) {
	fmt.Fprintf(buf, "%s%s\n", label, path)
	fmt.Fprintf(buf, "#    Lines:       %d\n", info.ImageHeight)
	fmt.Fprintf(buf, "#    Samples:     %d\n", info.ImageWidth)
	buf.WriteString("#    FPSamp0:     0\n")
	fmt.Fprintf(buf, "#    SampOffset:  %d\n", cropStartX)
	buf.WriteString("#    LineOffset:  0\n")
	buf.WriteString("#    CPMMNumber:  0\n")
	buf.WriteString("#    Summing:     0\n")
	buf.WriteString("#    TdiMode:     0\n")
	buf.WriteString("#    Channel:     0\n")
	buf.WriteString("#    LineRate:    0 <seconds>\n")
	fmt.Fprintf(buf, "#    TopLeft:     %7d %7d\n", cropStartX, 0)
	fmt.Fprintf(buf, "#    LowerRight:  %7d %7d\n", cropStartX+info.CropWidth, info.ImageHeight)
	buf.WriteString("#    StartTime:   0 <UTC>\n")
	buf.WriteString("#    SCStartTime: 0 <SCLK>\n")
	buf.WriteString("#    StartTime:   0 <seconds>\n")
}
