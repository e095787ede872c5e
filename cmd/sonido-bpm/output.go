package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/RyanBlaney/sonido-tempo/tempo"
)

type report struct {
	Path   string
	Result *tempo.Result
	Err    error
}

type jsonReport struct {
	File       string  `json:"file"`
	BPM        int     `json:"bpm"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	Offset     float64 `json:"window_offset"`
	Duration   float64 `json:"duration"`
	Error      string  `json:"error,omitempty"`
}

func writeReports(w io.Writer, reports []report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range reports {
			if err := enc.Encode(r.toJSON()); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tBPM\tCATEGORY\tCONFIDENCE\tWINDOW")
	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\terror\t\t\t%v\n", r.Path, r.Err)
			continue
		}
		res := r.Result
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.1fs+%.1fs\n",
			r.Path, formatBPM(res.BPM), orDash(res.Category()), res.Confidence,
			res.WindowOffset, res.WindowDuration)
	}
	return tw.Flush()
}

func (r report) toJSON() jsonReport {
	out := jsonReport{File: r.Path}
	if r.Err != nil {
		out.Error = r.Err.Error()
		return out
	}
	out.BPM = r.Result.BPM
	out.Category = r.Result.Category()
	out.Confidence = r.Result.Confidence
	out.Offset = r.Result.WindowOffset
	out.Duration = r.Result.Duration
	return out
}

// formatBPM prints 0 as "-"
func formatBPM(bpm int) string {
	if bpm <= 0 {
		return "-"
	}
	return strconv.Itoa(bpm)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
