package main

import (
	"fmt"
	"io"
	"time"

	"symverhdr/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	labels := map[pipeline.Stage]string{
		pipeline.StageProvision:  "provisioned (sum)",
		pipeline.StageExtract:    "extracted (sum)",
		pipeline.StageReconcile:  "reconciled",
		pipeline.StageSynthesize: "synthesized",
		pipeline.StageWrite:      "written",
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", labels[stage], toMillis(timings.Duration(stage))); err != nil {
			panic(err)
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
